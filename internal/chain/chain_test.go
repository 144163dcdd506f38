package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	token = common.HexToAddress("0x000000000000000000000000000000000000000a")
	owner = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

// fakeCaller answers balanceOf and decimals from fixed values.
type fakeCaller struct {
	balances map[common.Address]*big.Int
	decimals uint8
	err      error
	calls    int
	blocks   []*big.Int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	f.blocks = append(f.blocks, blockNumber)
	if f.err != nil {
		return nil, f.err
	}
	tokenABI, err := getERC20ABI()
	if err != nil {
		return nil, err
	}
	method, err := tokenABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "balanceOf":
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		bal := f.balances[args[0].(common.Address)]
		if bal == nil {
			bal = new(big.Int)
		}
		return method.Outputs.Pack(bal)
	default:
		return method.Outputs.Pack(f.decimals)
	}
}

func TestBalanceOf(t *testing.T) {
	want, _ := new(big.Int).SetString("50000000000000000000", 10)
	caller := &fakeCaller{balances: map[common.Address]*big.Int{owner: want}}

	got, err := BalanceOf(context.Background(), caller, token, owner, big.NewInt(19_000_000))
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000000", got.Dec())
	assert.Equal(t, int64(19_000_000), caller.blocks[0].Int64())

	zero, err := BalanceOf(context.Background(), caller, token, common.HexToAddress("0x01"), nil)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestDecimals(t *testing.T) {
	caller := &fakeCaller{decimals: 6}
	got, err := Decimals(context.Background(), caller, token)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), got)
}

func TestCallErrors(t *testing.T) {
	rpcDown := errors.New("rpc down")
	_, err := BalanceOf(context.Background(), &fakeCaller{err: rpcDown}, token, owner, nil)
	require.ErrorIs(t, err, rpcDown)

	_, err = BalanceOf(context.Background(), nil, token, owner, nil)
	assert.Error(t, err)
}

func TestRetryPolicy(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	flaky := errors.New("flaky")

	attempts := 0
	var retried []int
	err := policy.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return flaky
		}
		return nil
	}, func(attempt int, err error) {
		retried = append(retried, attempt)
		assert.ErrorIs(t, err, flaky)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)

	attempts = 0
	err = policy.Do(context.Background(), func(context.Context) error {
		attempts++
		return flaky
	}, nil)
	require.ErrorIs(t, err, flaky)
	assert.Equal(t, 4, attempts)
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryPolicy{MaxRetries: 5, Backoff: time.Hour}.Do(ctx, func(context.Context) error {
		return errors.New("fail")
	}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
