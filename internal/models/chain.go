package models

import "strings"

// Token is an asset a chain carries
type Token struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Address  string `yaml:"address" json:"address"`
	Decimals int32  `yaml:"decimals" json:"decimals"`
}

// ChainInfo is the registry entry for one chain
type ChainInfo struct {
	ChainId                          string   `yaml:"chainId" json:"chainId"`
	InternalId                       string   `yaml:"internalId" json:"internalId"`
	Name                             string   `yaml:"name" json:"name"`
	MinVerifyChallengeSourceTxSecond int64    `yaml:"minVerifyChallengeSourceTxSecond" json:"minVerifyChallengeSourceTxSecond"`
	MaxVerifyChallengeSourceTxSecond int64    `yaml:"maxVerifyChallengeSourceTxSecond" json:"maxVerifyChallengeSourceTxSecond"`
	Tokens                           []Token  `yaml:"tokens" json:"tokens"`
	Routers                          []string `yaml:"routers" json:"routers"`
}

// Token looks up a token by symbol, case-insensitively.
func (c *ChainInfo) Token(symbol string) (Token, bool) {
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

// IsRouter reports whether address is one of the chain's swap routers.
func (c *ChainInfo) IsRouter(address string) bool {
	for _, r := range c.Routers {
		if strings.EqualFold(r, address) {
			return true
		}
	}
	return false
}
