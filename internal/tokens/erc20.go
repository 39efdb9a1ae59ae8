package tokens

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"ammCore/internal/model"
)

// ContractCaller performs read-only contract calls. *chain.Client implements it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

const erc20StringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return symbol as bytes32.
const erc20Bytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20String      abi.ABI
	erc20Bytes32     abi.ABI
	erc20ABIOnce     sync.Once
	erc20ABIParseErr error
)

func erc20ABIs() (abi.ABI, abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20String, erc20ABIParseErr = abi.JSON(strings.NewReader(erc20StringJSON))
		if erc20ABIParseErr != nil {
			return
		}
		erc20Bytes32, erc20ABIParseErr = abi.JSON(strings.NewReader(erc20Bytes32JSON))
	})
	return erc20String, erc20Bytes32, erc20ABIParseErr
}

// FetchTokenMeta reads decimals and symbol of an ERC-20 token. A failed
// symbol call leaves Symbol empty; a failed decimals call is an error.
func FetchTokenMeta(ctx context.Context, caller ContractCaller, token common.Address) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	stringABI, bytes32ABI, err := erc20ABIs()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("unpack %s: empty result", method)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, fmt.Errorf("token %s: %w", token.Hex(), err)
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("token %s: unsupported decimals type %T", token.Hex(), values[0])
	}
	meta.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if raw, ok := values[0].([32]byte); ok {
			meta.Symbol = string(bytes.TrimRight(raw[:], "\x00"))
		}
	}
	return meta, nil
}
