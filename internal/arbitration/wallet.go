package arbitration

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"bridge-reconcile-go/internal/dedup"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// gas estimates are padded by this percentage
const gasBufferPercent = 20

// PendingTransaction is a submitted transaction awaiting its receipt
type PendingTransaction interface {
	Hash() common.Hash
	Wait(ctx context.Context) (*types.Receipt, error)
}

// Wallet signs and submits transactions from a single address
type Wallet interface {
	Address() common.Address
	SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (PendingTransaction, error)
	// Receipt returns nil without an error while txHash is not mined yet.
	Receipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EVMWallet is a Wallet backed by a JSON-RPC node and a local private key
type EVMWallet struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainId *big.Int
	locks   *dedup.LockRegistry
}

var _ Wallet = (*EVMWallet)(nil)

// DialEVMWallet connects to rpcURL and loads the signing key. Sends from the same
// address are serialized through locks so nonces never collide.
func DialEVMWallet(ctx context.Context, rpcURL, privateKeyHex string, locks *dedup.LockRegistry) (*EVMWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid arbitration private key: %w", err)
	}

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	rpcClient, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to dial rpc: %w", err)
	}
	client := ethclient.NewClient(rpcClient)

	chainId, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to read chain id: %w", err)
	}

	if locks == nil {
		locks = dedup.NewLockRegistry()
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	zap.L().Info("Arbitration wallet ready",
		zap.String("address", from.Hex()),
		zap.String("chain_id", chainId.String()))

	return &EVMWallet{
		client:  client,
		key:     key,
		from:    from,
		chainId: chainId,
		locks:   locks,
	}, nil
}

func createCustomHttpClient() (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

func (w *EVMWallet) Address() common.Address {
	return w.from
}

func (w *EVMWallet) SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (PendingTransaction, error) {
	if value == nil {
		value = big.NewInt(0)
	}

	var signed *types.Transaction
	err := w.locks.RunExclusive(ctx, w.chainId.String(), w.from.Hex(), func() error {
		nonce, err := w.client.PendingNonceAt(ctx, w.from)
		if err != nil {
			return fmt.Errorf("failed to get nonce: %w", err)
		}

		gasPrice, err := w.client.SuggestGasPrice(ctx)
		if err != nil {
			return fmt.Errorf("failed to get gas price: %w", err)
		}

		gas, err := w.client.EstimateGas(ctx, ethereum.CallMsg{
			From:  w.from,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return fmt.Errorf("failed to estimate gas: %w", err)
		}
		gas += gas * gasBufferPercent / 100

		tx := types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    value,
			Gas:      gas,
			GasPrice: gasPrice,
			Data:     data,
		})

		signed, err = types.SignTx(tx, types.LatestSignerForChainID(w.chainId), w.key)
		if err != nil {
			return fmt.Errorf("failed to sign transaction: %w", err)
		}

		if err := w.client.SendTransaction(ctx, signed); err != nil {
			return fmt.Errorf("failed to send transaction: %w", err)
		}

		zap.L().Info("Transaction submitted",
			zap.String("tx_hash", signed.Hash().Hex()),
			zap.Uint64("nonce", nonce),
			zap.Uint64("gas", gas))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &evmPending{client: w.client, tx: signed}, nil
}

func (w *EVMWallet) Receipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := w.client.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt %s: %w", txHash.Hex(), err)
	}
	return receipt, nil
}

func (w *EVMWallet) Close() {
	w.client.Close()
}

type evmPending struct {
	client *ethclient.Client
	tx     *types.Transaction
}

func (p *evmPending) Hash() common.Hash {
	return p.tx.Hash()
}

func (p *evmPending) Wait(ctx context.Context) (*types.Receipt, error) {
	return bind.WaitMined(ctx, p.client, p.tx)
}
