package amm

import "context"

type inFlightKey struct{}

// inFlight is the chain of pools with an operation in progress on a context.
type inFlight struct {
	pool   *Pool
	parent *inFlight
}

// enter marks ctx as carrying an operation on p, or fails if one is already
// in progress further up the call chain.
func (p *Pool) enter(ctx context.Context) (context.Context, error) {
	parent, _ := ctx.Value(inFlightKey{}).(*inFlight)
	for f := parent; f != nil; f = f.parent {
		if f.pool == p {
			return nil, ErrReentrantCall
		}
	}
	return context.WithValue(ctx, inFlightKey{}, &inFlight{pool: p, parent: parent}), nil
}
