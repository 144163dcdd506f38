package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrSupplyOverflow        = errors.New("total supply overflow")
)

// TransferHook runs before a transfer is applied, outside the token lock.
// Returning an error aborts the transfer.
type TransferHook func(ctx context.Context, from, to common.Address, amount *uint256.Int) error

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// Token is an in-memory fungible asset ledger with balances and allowances.
type Token struct {
	address  common.Address
	symbol   string
	decimals uint8

	mu          sync.Mutex
	totalSupply uint256.Int
	balances    map[common.Address]uint256.Int
	allowances  map[allowanceKey]uint256.Int
	hook        TransferHook
}

func NewToken(address common.Address, symbol string, decimals uint8) *Token {
	return &Token{
		address:    address,
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[common.Address]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
	}
}

func (t *Token) Address() common.Address { return t.address }
func (t *Token) Symbol() string          { return t.symbol }
func (t *Token) Decimals() uint8         { return t.decimals }

// SetTransferHook installs h for every later Transfer and TransferFrom.
func (t *Token) SetTransferHook(h TransferHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hook = h
}

func (t *Token) TotalSupply() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalSupply.Clone()
}

// Mint creates amount new units for to.
func (t *Token) Mint(to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	supply, overflow := new(uint256.Int).AddOverflow(&t.totalSupply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	t.totalSupply = *supply
	balance := t.balances[to]
	balance.Add(&balance, amount)
	t.balances[to] = balance
	return nil
}

// Approve sets the amount spender may move out of owner's balance.
func (t *Token) Approve(owner, spender common.Address, amount *uint256.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowances[allowanceKey{owner: owner, spender: spender}] = *amount
}

func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	allowance := t.allowances[allowanceKey{owner: owner, spender: spender}]
	return allowance.Clone()
}

func (t *Token) BalanceOf(_ context.Context, account common.Address) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	balance := t.balances[account]
	return balance.Clone(), nil
}

// Transfer moves amount from sender to recipient.
func (t *Token) Transfer(ctx context.Context, sender, recipient common.Address, amount *uint256.Int) error {
	if err := t.runHook(ctx, sender, recipient, amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(sender, recipient, amount)
}

// TransferFrom moves amount from owner to recipient, spending the allowance
// owner granted to spender.
func (t *Token) TransferFrom(ctx context.Context, spender, owner, recipient common.Address, amount *uint256.Int) error {
	if err := t.runHook(ctx, owner, recipient, amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := allowanceKey{owner: owner, spender: spender}
	allowance := t.allowances[key]
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: %s allows %s, need %s", ErrInsufficientAllowance, owner.Hex(), allowance.Dec(), amount.Dec())
	}
	if err := t.move(owner, recipient, amount); err != nil {
		return err
	}
	allowance.Sub(&allowance, amount)
	t.allowances[key] = allowance
	return nil
}

func (t *Token) runHook(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	hook := t.hook
	t.mu.Unlock()
	if hook == nil {
		return nil
	}
	return hook(ctx, from, to, amount)
}

func (t *Token) move(from, to common.Address, amount *uint256.Int) error {
	fromBalance := t.balances[from]
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s %s, need %s", ErrInsufficientBalance, from.Hex(), fromBalance.Dec(), t.symbol, amount.Dec())
	}
	if from == to {
		return nil
	}
	fromBalance.Sub(&fromBalance, amount)
	t.balances[from] = fromBalance

	toBalance := t.balances[to]
	toBalance.Add(&toBalance, amount)
	t.balances[to] = toBalance
	return nil
}
