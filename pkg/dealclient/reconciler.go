package dealclient

import (
	"context"
	"dealwire/pkg/logging"
	"dealwire/pkg/protocol"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Fetcher reads the authoritative state of one deal.
type Fetcher interface {
	FetchDeal(ctx context.Context, id int64) (json.RawMessage, error)
}

// Reconciler merges pushed deal updates into a Cache. Apply is meant to be
// called from a single reader goroutine; refetches run in the background
// until Close.
type Reconciler struct {
	cache   *Cache
	fetcher Fetcher
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewReconciler builds a reconciler. A nil fetcher leaves updated deals
// marked stale.
func NewReconciler(log *slog.Logger, cache *Cache, fetcher Fetcher) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{cache: cache, fetcher: fetcher, log: log, ctx: ctx, cancel: cancel}
}

func (r *Reconciler) Cache() *Cache { return r.cache }

// Apply handles one deal-update envelope: replace the entity, replace the
// matching list rows, then mark the deal stale and refetch it.
func (r *Reconciler) Apply(env protocol.Envelope) error {
	if env.Type != protocol.TypeDealUpdate {
		return fmt.Errorf("%w: %q", protocol.ErrUnknownType, env.Type)
	}
	ref, err := protocol.ParseDealRef(env.Deal)
	if err != nil {
		return err
	}

	r.cache.SetEntity(ref.ID, env.Deal)
	rows := r.cache.ReplaceInLists(ref.ID, env.Deal)
	r.cache.MarkStale(ref.ID)
	r.log.Debug("reconciler - apply - deal updated", logging.Deal(ref.ID), logging.Version(ref.Version), slog.Int("rows", rows))

	r.refetch(ref.ID)
	return nil
}

func (r *Reconciler) refetch(id int64) {
	if r.fetcher == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		raw, err := r.fetcher.FetchDeal(r.ctx, id)
		if err != nil {
			if r.ctx.Err() == nil {
				r.log.Warn("reconciler - refetch - failed", logging.Deal(id), logging.Err(err))
			}
			return
		}
		if !r.cache.Revalidate(id, raw) {
			r.log.Debug("reconciler - refetch - older than cache, dropped", logging.Deal(id))
		}
	}()
}

// Close cancels outstanding refetches and waits for them to return.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
