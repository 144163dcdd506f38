package simulate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"anchorePool/internal/amm"
	"anchorePool/internal/ledger"
	"anchorePool/internal/model"
)

// errorKind labels a failed step for the failure log and metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, errInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrInsufficientAllowance):
		return "insufficient_allowance"
	case errors.Is(err, ledger.ErrSupplyOverflow):
		return "supply_overflow"
	default:
		return amm.ErrorKind(err)
	}
}

// market is the pool under simulation with the ledgers of its two assets.
type market struct {
	pool  *amm.Pool
	book  *ledger.Book
	pairs map[string]common.Address
}

// asset resolves "a", "b" or a hex address to a pooled asset.
func (m *market) asset(input string) (common.Address, error) {
	if addr, ok := m.pairs[strings.ToLower(strings.TrimSpace(input))]; ok {
		return addr, nil
	}
	return parseAddress("asset", input)
}

func (m *market) token(input string) (*ledger.Token, error) {
	addr, err := m.asset(input)
	if err != nil {
		return nil, err
	}
	token, err := m.book.Token(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidOperation, err)
	}
	return token, nil
}

// apply executes one scenario operation.
func (m *market) apply(ctx context.Context, op model.Operation) error {
	caller, err := parseAddress("caller", op.Caller)
	if err != nil {
		return err
	}

	switch op.Op {
	case model.OpMint:
		token, err := m.token(op.Asset)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", op.Amount)
		if err != nil {
			return err
		}
		return token.Mint(caller, amount)

	case model.OpApprove:
		token, err := m.token(op.Asset)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", op.Amount)
		if err != nil {
			return err
		}
		token.Approve(caller, m.pool.Address(), amount)
		return nil

	case model.OpDonate:
		token, err := m.token(op.Asset)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", op.Amount)
		if err != nil {
			return err
		}
		return token.Transfer(ctx, caller, m.pool.Address(), amount)

	case model.OpAddLiquidity:
		amountA, err := parseAmount("amount_a", op.AmountA)
		if err != nil {
			return err
		}
		amountB, err := parseAmount("amount_b", op.AmountB)
		if err != nil {
			return err
		}
		_, err = m.pool.AddLiquidity(ctx, caller, amountA, amountB)
		return err

	case model.OpRemoveLiquidity:
		shares, err := parseAmount("shares", op.Shares)
		if err != nil {
			return err
		}
		_, _, err = m.pool.RemoveLiquidity(ctx, caller, shares)
		return err

	case model.OpSwapExactIn, model.OpSwapExactOut:
		return m.swap(ctx, caller, op)

	default:
		return fmt.Errorf("%w: unknown op %q", errInvalidOperation, op.Op)
	}
}

func (m *market) swap(ctx context.Context, caller common.Address, op model.Operation) error {
	assetIn, err := m.asset(op.Asset)
	if err != nil {
		return err
	}
	amount, err := parseAmount("amount", op.Amount)
	if err != nil {
		return err
	}
	limit, err := parseLimit(op.Limit)
	if err != nil {
		return err
	}
	recipient := caller
	if op.Recipient != "" {
		if recipient, err = parseAddress("recipient", op.Recipient); err != nil {
			return err
		}
	}

	if op.Op == model.OpSwapExactIn {
		_, err = m.pool.SwapExactIn(ctx, caller, amount, assetIn, limit, recipient)
		return err
	}
	// An exact-out step without a limit accepts any input.
	if limit == nil {
		limit = amm.MaxAmount()
	}
	_, err = m.pool.SwapExactOut(ctx, caller, amount, assetIn, limit, recipient)
	return err
}
