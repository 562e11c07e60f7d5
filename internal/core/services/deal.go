package services

import (
	"context"
	"dealwire/internal/core/contracts"
	"dealwire/internal/core/domain"
	"dealwire/pkg/logging"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("deal-service")

const maxListLimit = 200

// DealService is the only write path for deals. Every committed update is
// handed to the post-commit hooks, in order, before UpdateDeal returns.
type DealService struct {
	log       *slog.Logger
	repo      domain.DealRepository
	txManager contracts.Transactor
	hooks     []contracts.DealCommitHook
}

func NewDealService(
	log *slog.Logger,
	repo domain.DealRepository,
	txManager contracts.Transactor,
	hook contracts.DealCommitHook,
	more ...contracts.DealCommitHook,
) *DealService {
	return &DealService{
		log:       log,
		repo:      repo,
		txManager: txManager,
		hooks:     append([]contracts.DealCommitHook{hook}, more...),
	}
}

func (s *DealService) GetDeal(ctx context.Context, caller domain.Identity, id int64) (*domain.Deal, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidDealID
	}
	deal, err := s.repo.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if !deal.CanView(caller) {
		return nil, domain.ErrForbidden
	}
	return deal, nil
}

// ListDeals scopes the filter to the caller. Admins may list every deal.
func (s *DealService) ListDeals(ctx context.Context, caller domain.Identity, filter domain.DealFilter) ([]domain.Deal, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if caller.Role != domain.RoleAdmin {
		filter.ParticipantID = caller.UserID
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	deals, err := s.repo.ListDeals(ctx, filter)
	if err != nil {
		s.log.ErrorContext(ctx, "deals - list deals - query failed", logging.User(caller.UserID), logging.Err(err))
		return nil, fmt.Errorf("list deals: %w", err)
	}
	return deals, nil
}

// UpdateDeal applies patch on behalf of a participant, commits, then runs
// the post-commit hooks with the committed snapshot.
func (s *DealService) UpdateDeal(ctx context.Context, caller domain.Identity, id int64, patch domain.DealPatch) (*domain.Deal, error) {
	ctx, span := tracer.Start(ctx, "DealService.UpdateDeal", trace.WithAttributes(
		attribute.Int64("deal.id", id),
		attribute.Int64("user.id", caller.UserID),
	))
	defer span.End()

	if id <= 0 {
		return nil, domain.ErrInvalidDealID
	}
	if err := patch.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var committed *domain.Deal
	err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetDeal(txCtx, id)
		if err != nil {
			return err
		}
		if !current.IsParticipant(caller.UserID) {
			return domain.ErrForbidden
		}
		committed, err = s.repo.UpdateDeal(txCtx, id, patch)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		if !errors.Is(err, domain.ErrForbidden) && !errors.Is(err, domain.ErrDealNotFound) {
			s.log.ErrorContext(ctx, "deals - update deal - transaction failed", logging.Deal(id), logging.User(caller.UserID), logging.Err(err))
		}
		return nil, err
	}
	s.log.InfoContext(ctx, "deals - update deal - committed", logging.Deal(id), logging.Version(committed.Version), "status", committed.Status)

	// The mutation is committed; fan-out must not depend on the caller
	// still waiting for the response.
	hookCtx := context.WithoutCancel(ctx)
	snapshot := *committed
	for _, hook := range s.hooks {
		hook.OnDealCommitted(hookCtx, snapshot)
	}
	span.SetStatus(codes.Ok, "committed")
	return committed, nil
}
