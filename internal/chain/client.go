package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

// Client reads token state from an EVM JSON-RPC endpoint.
type Client struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return &Client{rpc: rpcClient, eth: ethclient.NewClient(rpcClient)}, nil
}

func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}

// BalancesAt returns a balance reader pinned to block so that every read
// sees the same state. A zero block is resolved to the latest one first.
func (c *Client) BalancesAt(ctx context.Context, block uint64) (uint64, func(context.Context, common.Address, common.Address) (*uint256.Int, error), error) {
	if block == 0 {
		latest, err := c.LatestBlockNumber(ctx)
		if err != nil {
			return 0, nil, fmt.Errorf("latest block: %w", err)
		}
		block = latest
	}
	pinned := new(big.Int).SetUint64(block)
	return block, func(ctx context.Context, token, owner common.Address) (*uint256.Int, error) {
		return BalanceOf(ctx, c, token, owner, pinned)
	}, nil
}
