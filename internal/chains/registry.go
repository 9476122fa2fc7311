package chains

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"bridge-reconcile-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

var (
	ErrChainNotFound         = errors.New("chain not found")
	ErrTokenNotFound         = errors.New("token not found")
	ErrDepositContractAbsent = errors.New("maker deposit contract not configured")
)

// File is the on-disk layout of the chain registry
type File struct {
	Chains []models.ChainInfo `yaml:"chains"`
	// Makers maps a maker owner address to its deposit contract.
	Makers map[string]string `yaml:"makers"`
}

type snapshot struct {
	byChainId    map[string]*models.ChainInfo
	byInternalId map[string]*models.ChainInfo
	makers       map[string]string
}

// Registry serves read-only chain metadata. Reload swaps in a whole new snapshot.
type Registry struct {
	current atomic.Pointer[snapshot]
	path    string
}

// NewRegistry builds a registry from an in-memory file.
func NewRegistry(file File) (*Registry, error) {
	snap, err := buildSnapshot(file)
	if err != nil {
		return nil, err
	}
	r := &Registry{}
	r.current.Store(snap)
	return r, nil
}

// LoadRegistry reads the registry from a yaml file, relative paths resolved against the working directory.
func LoadRegistry(chainsFile string) (*Registry, error) {
	file, err := readFile(chainsFile)
	if err != nil {
		return nil, err
	}
	r, err := NewRegistry(*file)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", chainsFile, err)
	}
	r.path = chainsFile

	zap.L().Info("Loaded chain registry",
		zap.String("file", chainsFile),
		zap.Int("chains", len(file.Chains)),
		zap.Int("makers", len(file.Makers)))
	return r, nil
}

// Reload re-reads the file the registry was loaded from. On error the old snapshot stays.
func (r *Registry) Reload() error {
	if r.path == "" {
		return fmt.Errorf("registry was not loaded from a file")
	}
	file, err := readFile(r.path)
	if err != nil {
		return err
	}
	snap, err := buildSnapshot(*file)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", r.path, err)
	}
	r.current.Store(snap)
	zap.L().Info("Reloaded chain registry", zap.String("file", r.path), zap.Int("chains", len(file.Chains)))
	return nil
}

func readFile(chainsFile string) (*File, error) {
	var chainsPath string
	if filepath.IsAbs(chainsFile) {
		chainsPath = chainsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		chainsPath = filepath.Join(wd, chainsFile)
	}

	data, err := os.ReadFile(chainsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", chainsFile, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", chainsFile, err)
	}
	return &file, nil
}

func buildSnapshot(file File) (*snapshot, error) {
	snap := &snapshot{
		byChainId:    make(map[string]*models.ChainInfo, len(file.Chains)),
		byInternalId: make(map[string]*models.ChainInfo, len(file.Chains)),
		makers:       make(map[string]string, len(file.Makers)),
	}

	for i := range file.Chains {
		chain := file.Chains[i]
		if chain.ChainId == "" {
			return nil, fmt.Errorf("chain at index %d missing chainId", i)
		}
		if chain.InternalId == "" {
			return nil, fmt.Errorf("chain %s missing internalId", chain.ChainId)
		}
		if chain.MaxVerifyChallengeSourceTxSecond < chain.MinVerifyChallengeSourceTxSecond {
			return nil, fmt.Errorf("chain %s challenge window max %d below min %d",
				chain.ChainId, chain.MaxVerifyChallengeSourceTxSecond, chain.MinVerifyChallengeSourceTxSecond)
		}
		for j, token := range chain.Tokens {
			if token.Symbol == "" {
				return nil, fmt.Errorf("chain %s token at index %d missing symbol", chain.ChainId, j)
			}
		}
		snap.byChainId[strings.ToLower(chain.ChainId)] = &chain
		snap.byInternalId[strings.ToLower(chain.InternalId)] = &chain
	}

	for owner, contract := range file.Makers {
		snap.makers[strings.ToLower(owner)] = contract
	}
	return snap, nil
}

// ChainInfo resolves a chain by its network chain id or its internal id.
func (r *Registry) ChainInfo(chainId string) (*models.ChainInfo, error) {
	snap := r.current.Load()
	key := strings.ToLower(strings.TrimSpace(chainId))
	if chain, ok := snap.byChainId[key]; ok {
		return chain, nil
	}
	if chain, ok := snap.byInternalId[key]; ok {
		return chain, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainId)
}

func (r *Registry) TokenBySymbol(chainId, symbol string) (*models.Token, error) {
	chain, err := r.ChainInfo(chainId)
	if err != nil {
		return nil, err
	}
	token, ok := chain.Token(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s on chain %s", ErrTokenNotFound, symbol, chainId)
	}
	return &token, nil
}

func (r *Registry) IsRouter(chainId, address string) bool {
	chain, err := r.ChainInfo(chainId)
	if err != nil {
		return false
	}
	return chain.IsRouter(address)
}

// MakerDepositContract returns the deposit contract challenges are sent to for a maker owner.
func (r *Registry) MakerDepositContract(owner string) (string, error) {
	contract, ok := r.current.Load().makers[strings.ToLower(owner)]
	if !ok || contract == "" {
		return "", fmt.Errorf("%w: owner %s", ErrDepositContractAbsent, owner)
	}
	return contract, nil
}

// Chains lists every chain in the current snapshot.
func (r *Registry) Chains() []models.ChainInfo {
	snap := r.current.Load()
	out := make([]models.ChainInfo, 0, len(snap.byChainId))
	for _, chain := range snap.byChainId {
		out = append(out, *chain)
	}
	return out
}
