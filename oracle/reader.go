package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-arb-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ChainReader is the read-only contract surface the oracle depends on.
type ChainReader interface {
	// GetPair returns the factory's pair for the tokens, or the zero address.
	GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error)
	// GetReserves returns the pair's raw reserves in pool storage order.
	GetReserves(ctx context.Context, pair common.Address) (reserve0, reserve1 *big.Int, err error)
	Token0(ctx context.Context, pair common.Address) (common.Address, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// EthReader implements ChainReader with eth_call through ABI-bound contracts.
type EthReader struct {
	caller bind.ContractCaller
}

// NewEthReader wraps caller, typically an *ethclient.Client.
func NewEthReader(caller bind.ContractCaller) *EthReader {
	return &EthReader{caller: caller}
}

func (r *EthReader) call(ctx context.Context, contract *bind.BoundContract, method string, args ...any) ([]any, error) {
	var raw []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &raw, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return raw, nil
}

func (r *EthReader) GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	contract := bind.NewBoundContract(factory, uniswapv2.FactoryABI, r.caller, nil, nil)
	raw, err := r.call(ctx, contract, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	return addressResult(raw, "getPair")
}

func (r *EthReader) GetReserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error) {
	contract := bind.NewBoundContract(pair, uniswapv2.PairABI, r.caller, nil, nil)
	raw, err := r.call(ctx, contract, "getReserves")
	if err != nil {
		return nil, nil, err
	}
	if len(raw) != 3 {
		return nil, nil, fmt.Errorf("unexpected getReserves return length %d", len(raw))
	}
	reserve0, ok0 := raw[0].(*big.Int)
	reserve1, ok1 := raw[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("unexpected getReserves types %T, %T", raw[0], raw[1])
	}
	return reserve0, reserve1, nil
}

func (r *EthReader) Token0(ctx context.Context, pair common.Address) (common.Address, error) {
	contract := bind.NewBoundContract(pair, uniswapv2.PairABI, r.caller, nil, nil)
	raw, err := r.call(ctx, contract, "token0")
	if err != nil {
		return common.Address{}, err
	}
	return addressResult(raw, "token0")
}

func (r *EthReader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	contract := bind.NewBoundContract(token, uniswapv2.ERC20ABI, r.caller, nil, nil)
	raw, err := r.call(ctx, contract, "decimals")
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("decimals: empty result")
	}
	dec, ok := raw[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected type %T", raw[0])
	}
	return dec, nil
}

func addressResult(raw []any, method string) (common.Address, error) {
	if len(raw) == 0 {
		return common.Address{}, fmt.Errorf("%s: empty result", method)
	}
	addr, ok := raw[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected type %T", method, raw[0])
	}
	return addr, nil
}
