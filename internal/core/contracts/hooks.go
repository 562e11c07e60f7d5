package contracts

import (
	"context"
	"dealwire/internal/core/domain"
)

// DealCommitHook is invoked with the committed snapshot after every
// successful deal mutation. Implementations must not fail the caller.
type DealCommitHook interface {
	OnDealCommitted(ctx context.Context, deal domain.Deal)
}

// DealCommitHookFunc adapts a function to DealCommitHook.
type DealCommitHookFunc func(ctx context.Context, deal domain.Deal)

func (f DealCommitHookFunc) OnDealCommitted(ctx context.Context, deal domain.Deal) {
	f(ctx, deal)
}

// Transactor runs fn inside a transaction carried by the context.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
