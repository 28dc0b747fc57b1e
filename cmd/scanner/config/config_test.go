package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/defistate/defistate-arb-go/protocols/tokenregistry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
chain:
  rpc_url: https://polygon-rpc.com
  ws_url: wss://polygon.example/ws
  chain_id: 137
tokens:
  - symbol: USDC
    address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
    decimals: 6
    hub: true
  - symbol: WETH
    address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"
    decimals: 18
    hub: true
  - symbol: LINK
    address: "0x53E0bca35eC356BD5ddDFebbD1Fc0fD03FaBad39"
dexes:
  - name: quickswap
    router: "0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff"
    factory: "0x5757371414417b8C6CAad45bAeF941aBc7d3Ab32"
  - name: apeswap
    router: "0xC0788A3aD43d79aa53B09c2EaCc313A787d1d607"
    factory: "0xCf083Be4164828f00cAE704EC15a36D711491284"
    fee_bps: 20
finder:
  strategy: triangular
  top_n: 5
optimizer:
  strategy: crosscheck
scanner:
  cache_ttl: 5m
  scan_interval: 30s
  batch_delay: 100ms
  min_profit: "1.5"
  min_profit_overrides:
    weth: "0.001"
oracle:
  call_timeout: 3s
mempool:
  enabled: true
journal:
  enabled: true
  path: /tmp/journal.db
log:
  backend: zap
  level: debug
`

func clearEnv(t *testing.T) {
	for _, k := range []string{EnvRPCURL, EnvWSURL, EnvPrivateKey, EnvGasAPIKey} {
		t.Setenv(k, "")
	}
}

func TestParse(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://polygon-rpc.com", cfg.Chain.RPCURL)
	assert.Equal(t, uint64(137), cfg.Chain.ChainID)
	assert.Equal(t, "137", cfg.ChainIDBig().String())

	require.Len(t, cfg.Tokens, 3)
	assert.Equal(t, common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"), cfg.Tokens[0].Address)
	assert.Equal(t, uint8(6), cfg.Tokens[0].Decimals)
	assert.True(t, cfg.Tokens[1].Hub)
	assert.False(t, cfg.Tokens[2].Hub)

	require.Len(t, cfg.Dexes, 2)
	assert.Equal(t, uint16(0), cfg.Dexes[0].FeeBps)
	assert.Equal(t, uint16(20), cfg.Dexes[1].FeeBps)

	assert.Equal(t, "triangular", cfg.Finder.Strategy)
	assert.Equal(t, 5, cfg.Finder.TopN)
	assert.Equal(t, "crosscheck", cfg.Optimizer.Strategy)
	assert.Equal(t, 5*time.Minute, cfg.Scanner.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Scanner.ScanInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.Scanner.BatchDelay)
	assert.Equal(t, 3*time.Second, cfg.Oracle.CallTimeout)
	assert.Equal(t, "1.5", cfg.Scanner.MinProfit)
	assert.True(t, cfg.Mempool.Enabled)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
	assert.Equal(t, "zap", cfg.Log.Backend)
	assert.True(t, cfg.Settlement.IsDryRun(), "dry run unless disabled")

	tokens, err := tokenregistry.NewRegistry(cfg.Tokens)
	require.NoError(t, err)
	overrides, err := cfg.MinProfitOverrides(tokens)
	require.NoError(t, err)
	assert.Equal(t, map[common.Address]string{cfg.Tokens[1].Address: "0.001"}, overrides)
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRPCURL, "https://override.example")
	t.Setenv(EnvWSURL, "wss://override.example")
	t.Setenv(EnvPrivateKey, "0xabc123")
	t.Setenv(EnvGasAPIKey, "gas-key")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "https://override.example", cfg.Chain.RPCURL)
	assert.Equal(t, "wss://override.example", cfg.Chain.WSURL)
	assert.Equal(t, "abc123", cfg.Settlement.PrivateKey)
	assert.Equal(t, "gas-key", cfg.Settlement.GasAPIKey)
}

func TestParse_Invalid(t *testing.T) {
	clearEnv(t)
	base := "chain:\n  chain_id: 137\n  rpc_url: http://x\n" +
		"tokens:\n  - {symbol: A, address: \"0x000000000000000000000000000000000000000a\"}\n  - {symbol: B, address: \"0x000000000000000000000000000000000000000b\"}\n" +
		"dexes:\n  - {name: quickswap, factory: \"0x0000000000000000000000000000000000000001\"}\n"

	testCases := []struct {
		name string
		yaml string
	}{
		{"missing rpc url", "chain:\n  chain_id: 137\n"},
		{"missing chain id", "chain:\n  rpc_url: http://x\n"},
		{"too few tokens", "chain:\n  chain_id: 137\n  rpc_url: http://x\ntokens:\n  - {symbol: A, address: \"0x000000000000000000000000000000000000000a\"}\n"},
		{"no dexes", "chain:\n  chain_id: 137\n  rpc_url: http://x\ntokens:\n  - {symbol: A, address: \"0x000000000000000000000000000000000000000a\"}\n  - {symbol: B, address: \"0x000000000000000000000000000000000000000b\"}\n"},
		{"mempool without ws", base + "mempool:\n  enabled: true\n"},
		{"settlement without contract", base + "settlement:\n  enabled: true\n"},
		{"settlement without key", base + "settlement:\n  enabled: true\n  contract: \"0x000000000000000000000000000000000000000c\"\n"},
		{"malformed yaml", "chain: ["},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}

	cfg, err := Parse([]byte(base + "settlement:\n  dry_run: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Settlement.IsDryRun())
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(cfgPath, []byte(sampleYAML), 0o600))
	require.NoError(t, os.WriteFile(envPath, []byte("GAS_API_KEY=from-dotenv\n"), 0o600))
	// godotenv does not override variables that are already set.
	require.NoError(t, os.Unsetenv(EnvGasAPIKey))

	cfg, err := LoadConfig(cfgPath, envPath)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Settlement.GasAPIKey)
	t.Cleanup(func() { os.Unsetenv(EnvGasAPIKey) })

	_, err = LoadConfig(cfgPath, filepath.Join(dir, "missing.env"))
	assert.NoError(t, err, "a missing env file is not an error")

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"), "")
	assert.Error(t, err)
}

func TestLoadConfig_RepositoryExample(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(filepath.Join("..", "..", "..", "config.yaml"), "")
	require.NoError(t, err)

	tokens, err := tokenregistry.NewRegistry(cfg.Tokens)
	require.NoError(t, err)
	assert.Len(t, tokens.Hubs(), 5)
	assert.Len(t, cfg.Dexes, 3)
	assert.True(t, cfg.Settlement.IsDryRun())

	overrides, err := cfg.MinProfitOverrides(tokens)
	require.NoError(t, err)
	assert.Len(t, overrides, 2)
}
