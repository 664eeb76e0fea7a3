// Package chain reads on-chain collateral state over JSON-RPC: ERC-20
// balances and spender allowances for the exchange, and ERC-1155 outcome
// token balances.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/quantish/clobtrade/internal/domain"
)

// collateralDecimals is the USDC fixed-point scale.
const collateralDecimals = 1e6

var (
	erc20ABI   abi.ABI
	erc1155ABI abi.ABI
)

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(`[{
		"name":"balanceOf","type":"function",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]
	},{
		"name":"allowance","type":"function",
		"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]
	}]`))
	if err != nil {
		panic("erc20 abi: " + err.Error())
	}
	erc1155ABI, err = abi.JSON(strings.NewReader(`[{
		"name":"balanceOf","type":"function",
		"inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],
		"outputs":[{"name":"","type":"uint256"}]
	}]`))
	if err != nil {
		panic("erc1155 abi: " + err.Error())
	}
}

// Reader performs read-only contract calls against a JSON-RPC endpoint. It
// satisfies domain.ChainReader.
type Reader struct {
	rpc        *ethclient.Client
	collateral common.Address
	ctf        common.Address
}

var _ domain.ChainReader = (*Reader)(nil)

// NewReader dials rpcURL and binds the collateral (ERC-20) and conditional
// token (ERC-1155) contract addresses.
func NewReader(rpcURL, collateralAddr, ctfAddr string) (*Reader, error) {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial rpc: %w", err)
	}
	return &Reader{
		rpc:        rpc,
		collateral: common.HexToAddress(collateralAddr),
		ctf:        common.HexToAddress(ctfAddr),
	}, nil
}

// Close releases the underlying RPC connection.
func (r *Reader) Close() {
	r.rpc.Close()
}

// Balance returns the owner's collateral balance in display units.
func (r *Reader) Balance(ctx context.Context, owner string) (float64, error) {
	raw, err := r.callUint256(ctx, r.collateral, erc20ABI, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return 0, fmt.Errorf("chain: balance of %s: %w", owner, err)
	}
	return toDisplay(raw), nil
}

// Allowance returns how much collateral the owner has approved the spender
// to move, in display units.
func (r *Reader) Allowance(ctx context.Context, owner, spender string) (float64, error) {
	raw, err := r.callUint256(ctx, r.collateral, erc20ABI, "allowance",
		common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return 0, fmt.Errorf("chain: allowance %s->%s: %w", owner, spender, err)
	}
	return toDisplay(raw), nil
}

// TokenBalance returns the owner's outcome token balance in display units.
// tokenID is the decimal ERC-1155 token ID.
func (r *Reader) TokenBalance(ctx context.Context, owner, tokenID string) (float64, error) {
	tid, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return 0, fmt.Errorf("chain: invalid token id %q", tokenID)
	}

	raw, err := r.callUint256(ctx, r.ctf, erc1155ABI, "balanceOf", common.HexToAddress(owner), tid)
	if err != nil {
		return 0, fmt.Errorf("chain: token balance of %s: %w", owner, err)
	}
	return toDisplay(raw), nil
}

// callUint256 packs and executes an eth_call returning a single uint256.
func (r *Reader) callUint256(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...any) (*big.Int, error) {
	callData, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	result, err := r.rpc.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: call %s: %v", domain.ErrProviderUnavailable, method, err)
	}

	vals, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(vals))
	}
	out, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", method, vals[0])
	}

	return out, nil
}

// toDisplay converts a raw 6-decimal fixed-point amount to display units.
func toDisplay(raw *big.Int) float64 {
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(raw),
		big.NewFloat(collateralDecimals),
	).Float64()
	return f
}
