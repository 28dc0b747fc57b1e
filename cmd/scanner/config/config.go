package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/defistate/defistate-arb-go/logging"
	"github.com/defistate/defistate-arb-go/protocols/dexregistry"
	"github.com/defistate/defistate-arb-go/protocols/tokenregistry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvRPCURL     = "RPC_URL"
	EnvWSURL      = "WS_URL"
	EnvPrivateKey = "PRIVATE_KEY"
	EnvGasAPIKey  = "GAS_API_KEY"
)

// ChainConfig is the node connection.
type ChainConfig struct {
	RPCURL  string `yaml:"rpc_url"`
	WSURL   string `yaml:"ws_url"`
	ChainID uint64 `yaml:"chain_id"`
}

// FinderConfig tunes cycle enumeration and ranking.
type FinderConfig struct {
	Strategy         string `yaml:"strategy"`
	MaxHops          int    `yaml:"max_hops"`
	MaxPathsPerToken int    `yaml:"max_paths_per_token"`
	TopN             int    `yaml:"top_n"`
}

// OptimizerConfig tunes trade sizing.
type OptimizerConfig struct {
	Strategy    string `yaml:"strategy"`
	SlippageBps uint16 `yaml:"slippage_bps"`
	PinHopDex   bool   `yaml:"pin_hop_dex"`
}

// ScannerConfig tunes the orchestrator.
type ScannerConfig struct {
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	ScanInterval    time.Duration `yaml:"scan_interval"`
	BatchSize       int           `yaml:"batch_size"`
	BatchDelay      time.Duration `yaml:"batch_delay"`
	MempoolCooldown time.Duration `yaml:"mempool_cooldown"`
	// MinProfit is in whole start-token units.
	MinProfit string `yaml:"min_profit"`
	// MinProfitOverrides maps token symbols to their own minimum.
	MinProfitOverrides map[string]string `yaml:"min_profit_overrides"`
}

// OracleConfig tunes the reserve oracle.
type OracleConfig struct {
	BatchSize   int           `yaml:"batch_size"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// SettlementConfig configures the settlement contract hand-off.
type SettlementConfig struct {
	Enabled       bool           `yaml:"enabled"`
	Contract      common.Address `yaml:"contract"`
	DryRun        *bool          `yaml:"dry_run"`
	EmergencyStop bool           `yaml:"emergency_stop"`
	GasLimit      uint64         `yaml:"gas_limit"`
	GasAPIURL     string         `yaml:"gas_api_url"`
	// Secrets, from the environment only.
	PrivateKey string `yaml:"-"`
	GasAPIKey  string `yaml:"-"`
}

// IsDryRun reports the dry-run setting, true unless explicitly disabled.
func (s SettlementConfig) IsDryRun() bool {
	return s.DryRun == nil || *s.DryRun
}

// MempoolConfig configures the pending-transaction trigger.
type MempoolConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Selectors  []string `yaml:"selectors"`
	BufferSize uint     `yaml:"buffer_size"`
}

// JournalConfig configures the opportunity journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// APIConfig configures the status server.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ScannerAppConfig is the full process configuration.
type ScannerAppConfig struct {
	Chain      ChainConfig           `yaml:"chain"`
	Tokens     []tokenregistry.Token `yaml:"tokens"`
	Dexes      []dexregistry.Dex     `yaml:"dexes"`
	Finder     FinderConfig          `yaml:"finder"`
	Optimizer  OptimizerConfig       `yaml:"optimizer"`
	Scanner    ScannerConfig         `yaml:"scanner"`
	Oracle     OracleConfig          `yaml:"oracle"`
	Settlement SettlementConfig      `yaml:"settlement"`
	Mempool    MempoolConfig         `yaml:"mempool"`
	Journal    JournalConfig         `yaml:"journal"`
	API        APIConfig             `yaml:"api"`
	Log        logging.Config        `yaml:"log"`
}

// LoadConfig reads envFile, when present, into the environment and then
// parses the YAML file at path. Secrets come from the environment and
// override the file.
func LoadConfig(path, envFile string) (*ScannerAppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*ScannerAppConfig, error) {
	var cfg ScannerAppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ScannerAppConfig) applyEnv() {
	if v := os.Getenv(EnvRPCURL); v != "" {
		c.Chain.RPCURL = v
	}
	if v := os.Getenv(EnvWSURL); v != "" {
		c.Chain.WSURL = v
	}
	c.Settlement.PrivateKey = strings.TrimPrefix(os.Getenv(EnvPrivateKey), "0x")
	c.Settlement.GasAPIKey = os.Getenv(EnvGasAPIKey)
}

func (c *ScannerAppConfig) validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("config: chain.rpc_url or %s is required", EnvRPCURL)
	}
	if c.Chain.ChainID == 0 {
		return errors.New("config: chain.chain_id is required")
	}
	if len(c.Tokens) < 2 {
		return errors.New("config: at least two tokens are required")
	}
	if len(c.Dexes) == 0 {
		return errors.New("config: at least one dex is required")
	}
	if c.Mempool.Enabled && c.Chain.WSURL == "" {
		return fmt.Errorf("config: mempool requires chain.ws_url or %s", EnvWSURL)
	}
	if c.Settlement.Enabled {
		if c.Settlement.Contract == (common.Address{}) {
			return errors.New("config: settlement.contract is required when settlement is enabled")
		}
		if c.Settlement.PrivateKey == "" {
			return fmt.Errorf("config: %s is required when settlement is enabled", EnvPrivateKey)
		}
	}
	return nil
}

// ChainIDBig returns the chain id as a big.Int.
func (c *ScannerAppConfig) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(c.Chain.ChainID)
}

// MinProfitOverrides resolves symbol-keyed overrides to token addresses.
func (c *ScannerAppConfig) MinProfitOverrides(tokens *tokenregistry.Registry) (map[common.Address]string, error) {
	out := make(map[common.Address]string, len(c.Scanner.MinProfitOverrides))
	for symbol, v := range c.Scanner.MinProfitOverrides {
		t, ok := tokens.GetBySymbol(symbol)
		if !ok {
			return nil, fmt.Errorf("config: min profit override for unknown token %q", symbol)
		}
		out[t.Address] = v
	}
	return out, nil
}
