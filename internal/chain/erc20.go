package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const erc20ABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

func getERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// ContractCaller is the eth_call capability the token readers need.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BalanceOf reads token.balanceOf(owner) at blockNumber, or at the latest
// block when blockNumber is nil.
func BalanceOf(ctx context.Context, caller ContractCaller, token, owner common.Address, blockNumber *big.Int) (*uint256.Int, error) {
	values, err := call(ctx, caller, token, "balanceOf", blockNumber, owner)
	if err != nil {
		return nil, err
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf unexpected type %T", values[0])
	}
	out, overflow := uint256.FromBig(bal)
	if overflow {
		return nil, fmt.Errorf("balanceOf %s exceeds 256 bits", bal)
	}
	return out, nil
}

// Decimals reads token.decimals().
func Decimals(ctx context.Context, caller ContractCaller, token common.Address) (uint8, error) {
	values, err := call(ctx, caller, token, "decimals", nil)
	if err != nil {
		return 0, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals unexpected type %T", values[0])
	}
	return decimals, nil
}

func call(ctx context.Context, caller ContractCaller, token common.Address, method string, blockNumber *big.Int, args ...interface{}) ([]interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	tokenABI, err := getERC20ABI()
	if err != nil {
		return nil, err
	}

	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := caller.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := tokenABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return values, nil
}
