package amm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"anchorePool/internal/model"
)

// Config describes a pool at provisioning time. Assets and fee rate are fixed
// for the life of the pool.
type Config struct {
	// Address is the pool's own account on both ledgers.
	Address common.Address
	AssetA  common.Address
	AssetB  common.Address
	FeeBps  uint16
	LedgerA Ledger
	LedgerB Ledger
	Sink    EventSink
	Logger  *zap.Logger
	Now     func() time.Time
}

// side selects one of the two pooled assets.
type side uint8

const (
	sideA side = iota
	sideB
)

func (s side) other() side {
	return s ^ 1
}

func (s side) String() string {
	if s == sideA {
		return "a"
	}
	return "b"
}

// Pool is a two-asset constant-product pool. All methods are safe for
// concurrent use; state-changing operations run one at a time.
type Pool struct {
	address common.Address
	assets  [2]common.Address
	ledgers [2]Ledger
	feeBps  uint16
	sink    EventSink
	logger  *zap.Logger
	now     func() time.Time

	mu          sync.RWMutex
	reserves    [2]uint256.Int
	fees        [2]uint256.Int
	totalShares uint256.Int
	shares      map[common.Address]uint256.Int
	seq         uint64
	stale       bool
}

// New creates an empty pool.
func New(cfg Config) (*Pool, error) {
	if cfg.AssetA == cfg.AssetB {
		return nil, ErrIdenticalAssets
	}
	if cfg.FeeBps >= BasisPoints {
		return nil, ErrInvalidFee
	}
	if cfg.LedgerA == nil || cfg.LedgerB == nil {
		return nil, ErrNilLedger
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Pool{
		address: cfg.Address,
		assets:  [2]common.Address{cfg.AssetA, cfg.AssetB},
		ledgers: [2]Ledger{cfg.LedgerA, cfg.LedgerB},
		feeBps:  cfg.FeeBps,
		sink:    cfg.Sink,
		logger:  logger.With(zap.String("pool", cfg.Address.Hex())),
		now:     now,
		shares:  make(map[common.Address]uint256.Int),
	}, nil
}

func (p *Pool) sideOf(asset common.Address) (side, error) {
	switch asset {
	case p.assets[sideA]:
		return sideA, nil
	case p.assets[sideB]:
		return sideB, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidInputAsset, asset.Hex())
	}
}

// checkpoint holds every field an operation may change.
type checkpoint struct {
	reserves    [2]uint256.Int
	fees        [2]uint256.Int
	totalShares uint256.Int
	account     common.Address
	balance     uint256.Int
	held        bool
}

func (p *Pool) checkpoint(account common.Address) checkpoint {
	balance, held := p.shares[account]
	return checkpoint{
		reserves:    p.reserves,
		fees:        p.fees,
		totalShares: p.totalShares,
		account:     account,
		balance:     balance,
		held:        held,
	}
}

func (p *Pool) restore(cp checkpoint) {
	p.reserves = cp.reserves
	p.fees = cp.fees
	p.totalShares = cp.totalShares
	if cp.held {
		p.shares[cp.account] = cp.balance
	} else {
		delete(p.shares, cp.account)
	}
}

func (p *Pool) credit(account common.Address, amount *uint256.Int) {
	balance := p.shares[account]
	balance.Add(&balance, amount)
	p.shares[account] = balance
}

func (p *Pool) debit(account common.Address, amount *uint256.Int) {
	balance := p.shares[account]
	balance.Sub(&balance, amount)
	if balance.IsZero() {
		delete(p.shares, account)
		return
	}
	p.shares[account] = balance
}

func (p *Pool) pull(ctx context.Context, s side, owner common.Address, amount *uint256.Int) error {
	if err := p.ledgers[s].TransferFrom(ctx, p.address, owner, p.address, amount); err != nil {
		return fmt.Errorf("pull %s from %s: %w", p.assets[s].Hex(), owner.Hex(), err)
	}
	return nil
}

func (p *Pool) push(ctx context.Context, s side, recipient common.Address, amount *uint256.Int) error {
	if err := p.ledgers[s].Transfer(ctx, p.address, recipient, amount); err != nil {
		return fmt.Errorf("push %s to %s: %w", p.assets[s].Hex(), recipient.Hex(), err)
	}
	return nil
}

// refund returns a completed pull after a later step of the same operation
// failed.
func (p *Pool) refund(ctx context.Context, s side, owner common.Address, amount *uint256.Int) error {
	if err := p.push(ctx, s, owner, amount); err != nil {
		p.stale = true
		p.logger.Error("refund failed", zap.String("side", s.String()), zap.String("owner", owner.Hex()), zap.Error(err))
		return fmt.Errorf("refund: %w", err)
	}
	return nil
}

// reclaim takes back a completed push after a later step of the same
// operation failed. It needs the recipient's allowance for the pool.
func (p *Pool) reclaim(ctx context.Context, s side, recipient common.Address, amount *uint256.Int) error {
	if err := p.pull(ctx, s, recipient, amount); err != nil {
		p.stale = true
		p.logger.Error("reclaim failed", zap.String("side", s.String()), zap.String("recipient", recipient.Hex()), zap.Error(err))
		return fmt.Errorf("reclaim: %w", err)
	}
	return nil
}

func (p *Pool) syncReserves(ctx context.Context) error {
	var balances [2]uint256.Int
	for _, s := range []side{sideA, sideB} {
		bal, err := p.ledgers[s].BalanceOf(ctx, p.address)
		if err != nil {
			p.stale = true
			return fmt.Errorf("balance of %s: %w", p.assets[s].Hex(), err)
		}
		balances[s] = *bal
	}
	p.reserves = balances
	p.stale = false
	return nil
}

// settle resynchronizes reserves once funds have moved. The operation has
// already completed on the ledgers, so a failed read keeps the provisional
// reserves and defers the resync to the start of the next operation.
func (p *Pool) settle(ctx context.Context, op string) {
	if err := p.syncReserves(ctx); err != nil {
		p.logger.Error("sync reserves failed", zap.String("op", op), zap.Error(err))
	}
}

func (p *Pool) ensureSynced(ctx context.Context) error {
	if !p.stale {
		return nil
	}
	return p.syncReserves(ctx)
}

func (p *Pool) emit(ctx context.Context, name string, payload interface{}) {
	p.seq++
	if p.sink == nil {
		return
	}
	p.sink.Emit(ctx, model.PoolEvent{
		Pool:      p.address.Hex(),
		Seq:       p.seq,
		EventName: name,
		Timestamp: uint64(p.now().Unix()),
		Decoded:   payload,
	})
}

func isZero(amount *uint256.Int) bool {
	return amount == nil || amount.IsZero()
}
