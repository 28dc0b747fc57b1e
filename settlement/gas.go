package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/defistate/defistate-arb-go/protocols/tokenregistry"
)

// DefaultGasLimit is used when the gas API does not answer.
const DefaultGasLimit uint64 = 1_000_000

const (
	defaultGasAPITimeout = 5 * time.Second
	gweiDecimals         = 9
)

// GasOverrides are the fee fields applied to a settlement transaction. Nil
// fee caps are left to the node's suggestion.
type GasOverrides struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	GasLimit             uint64
}

// GasSource supplies gas overrides for settlement.
type GasSource interface {
	Overrides(ctx context.Context) GasOverrides
}

// StaticGas returns a fixed gas limit and no fee caps.
type StaticGas uint64

func (g StaticGas) Overrides(context.Context) GasOverrides {
	limit := uint64(g)
	if limit == 0 {
		limit = DefaultGasLimit
	}
	return GasOverrides{GasLimit: limit}
}

// GasOracleConfig holds the configuration for the GasOracle.
type GasOracleConfig struct {
	URL    string
	APIKey string
	// GasLimit is attached to every answer; DefaultGasLimit when zero.
	GasLimit uint64
	Client   *http.Client
	Logger   Logger
}

func (c *GasOracleConfig) validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// GasOracle fetches EIP-1559 fee caps, quoted in gwei, from a gas API.
type GasOracle struct {
	url      string
	apiKey   string
	gasLimit uint64
	client   *http.Client
	logger   Logger
}

type gasResponse struct {
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
}

// NewGasOracle creates a GasOracle.
func NewGasOracle(cfg GasOracleConfig) (*GasOracle, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: defaultGasAPITimeout}
	}
	return &GasOracle{
		url:      cfg.URL,
		apiKey:   cfg.APIKey,
		gasLimit: cfg.GasLimit,
		client:   cfg.Client,
		logger:   cfg.Logger,
	}, nil
}

// Overrides returns the current fee caps. Any failure falls back to the
// default gas limit with no fee caps.
func (g *GasOracle) Overrides(ctx context.Context) GasOverrides {
	o, err := g.fetch(ctx)
	if err != nil {
		g.logger.Warn("gas API unavailable, using fallback", "error", err, "gasLimit", DefaultGasLimit)
		return GasOverrides{GasLimit: DefaultGasLimit}
	}
	return o
}

func (g *GasOracle) fetch(ctx context.Context) (GasOverrides, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return GasOverrides{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return GasOverrides{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return GasOverrides{}, fmt.Errorf("gas API status %d", resp.StatusCode)
	}

	var body gasResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return GasOverrides{}, fmt.Errorf("decode gas response: %w", err)
	}
	maxFee, err := tokenregistry.ParseUnits(body.MaxFeePerGas, gweiDecimals)
	if err != nil {
		return GasOverrides{}, fmt.Errorf("maxFeePerGas: %w", err)
	}
	tip, err := tokenregistry.ParseUnits(body.MaxPriorityFeePerGas, gweiDecimals)
	if err != nil {
		return GasOverrides{}, fmt.Errorf("maxPriorityFeePerGas: %w", err)
	}
	return GasOverrides{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip, GasLimit: g.gasLimit}, nil
}
