// Package chain is the read-only RPC connection used to look up token
// contracts.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const defaultCallTimeout = 10 * time.Second

// Client issues eth_call requests against one endpoint. Each request is
// bounded by the call timeout.
type Client struct {
	rpc         *rpc.Client
	eth         *ethclient.Client
	callTimeout time.Duration

	mu      sync.Mutex
	chainID *big.Int
}

// NewClient dials rpcURL. A zero callTimeout uses the default.
func NewClient(ctx context.Context, rpcURL string, callTimeout time.Duration) (*Client, error) {
	rc, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &Client{
		rpc:         rc,
		eth:         ethclient.NewClient(rc),
		callTimeout: callTimeout,
	}, nil
}

func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// ChainID returns the endpoint's chain id. The first successful answer is
// remembered for the life of the client.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID != nil {
		return new(big.Int).Set(c.chainID), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	c.chainID = id
	return new(big.Int).Set(id), nil
}

// CallContract performs an eth_call at blockNumber, or at the latest block
// when blockNumber is nil.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.eth.CallContract(ctx, msg, blockNumber)
}
