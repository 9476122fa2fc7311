package models

import "time"

// Legacy ledger status codes
const (
	LegacyStatusPending = 1
	LegacyStatusFailed  = 3
	LegacyStatusSettled = 96
	LegacyStatusMatched = 99
)

// Legacy transaction sides
const (
	SideSource = 0
	SideTarget = 1
)

// LegacyTransaction is one leg of a bridge transfer as recorded in the v1 ledger
type LegacyTransaction struct {
	Id           int64     `db:"id" json:"id"`
	Hash         string    `db:"hash" json:"hash"`
	Nonce        string    `db:"nonce" json:"nonce"`
	From         string    `db:"from_addr" json:"from"`
	To           string    `db:"to_addr" json:"to"`
	Value        string    `db:"value" json:"value"`
	Symbol       string    `db:"symbol" json:"symbol"`
	Status       int       `db:"status" json:"status"`
	ChainId      string    `db:"chain_id" json:"chainId"`
	Side         int       `db:"side" json:"side"`
	Memo         string    `db:"memo" json:"memo"`
	TransferId   string    `db:"transfer_id" json:"transferId"`
	ExpectValue  string    `db:"expect_value" json:"expectValue"`
	ReplyAccount string    `db:"reply_account" json:"replyAccount"`
	ReplySender  string    `db:"reply_sender" json:"replySender"`
	Source       string    `db:"source" json:"source"`
	Extra        string    `db:"extra" json:"extra,omitempty"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
}

// MakerTransaction pairs an inbound leg with the maker's outbound reply.
// OutId is nil until both legs settle together.
type MakerTransaction struct {
	Id            int64     `db:"id" json:"id"`
	TranscationId string    `db:"transcation_id" json:"transcationId"`
	InId          int64     `db:"in_id" json:"inId"`
	OutId         *int64    `db:"out_id" json:"outId,omitempty"`
	FromChain     string    `db:"from_chain" json:"fromChain"`
	ToChain       string    `db:"to_chain" json:"toChain"`
	ToAmount      string    `db:"to_amount" json:"toAmount"`
	ReplySender   string    `db:"reply_sender" json:"replySender"`
	ReplyAccount  string    `db:"reply_account" json:"replyAccount"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Paired reports whether both legs are linked.
func (m *MakerTransaction) Paired() bool {
	return m != nil && m.InId != 0 && m.OutId != nil
}
