package domain

import "context"

// DealRepository is the persistence boundary for deals.
type DealRepository interface {
	GetDeal(ctx context.Context, id int64) (*Deal, error)
	ListDeals(ctx context.Context, filter DealFilter) ([]Deal, error)
	// UpdateDeal applies the patch, bumps the version and returns the
	// committed row.
	UpdateDeal(ctx context.Context, id int64, patch DealPatch) (*Deal, error)
}

// SessionRepository tracks which issued session ids are still live.
type SessionRepository interface {
	SaveSession(ctx context.Context, s Session) error
	SessionActive(ctx context.Context, sessionID string) (bool, error)
	RevokeSession(ctx context.Context, sessionID string) error
}

