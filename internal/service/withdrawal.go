package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tonfarm/farmledger/internal/domain"
	"github.com/tonfarm/farmledger/internal/models"
	"github.com/tonfarm/farmledger/internal/observability"
	"github.com/tonfarm/farmledger/internal/repository"
)

// withdrawalTransitions is the full state machine: pending is the only
// non-terminal state.
var withdrawalTransitions = map[string]map[string]struct{}{
	domain.WithdrawalStatusPending: {
		domain.WithdrawalStatusApproved: {},
		domain.WithdrawalStatusRejected: {},
	},
	domain.WithdrawalStatusApproved: {},
	domain.WithdrawalStatusRejected: {},
}

// CanTransitionWithdrawal reports whether the state machine allows the move.
func CanTransitionWithdrawal(current, next string) bool {
	nextStates, ok := withdrawalTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

// WithdrawalService owns the escrowed TON withdrawal lifecycle. Funds leave
// the spendable balance the moment a request is filed; approval only stamps
// the decision, rejection credits the amount back.
type WithdrawalService struct {
	store  QueryStore
	ledger *LedgerService
	audit  *AuditService
}

func NewWithdrawalService(store QueryStore, ledger *LedgerService) *WithdrawalService {
	return &WithdrawalService{
		store:  store,
		ledger: ledger,
		audit:  NewAuditService(),
	}
}

// Create files a withdrawal request, debiting the TON balance in the same
// transaction. An insufficient balance fails the whole operation.
func (s *WithdrawalService) Create(ctx context.Context, userID int64, amount decimal.Decimal, destination string) (models.WithdrawalRequest, error) {
	if userID <= 0 {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if !amount.IsPositive() {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: withdrawal amount must be positive", ErrValidation)
	}
	if destination == "" {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: destination_address is required", ErrValidation)
	}

	requestID := uuid.New()
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		open, err := qtx.CountOpenWithdrawals(ctx, userID)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: user %d already has an open withdrawal request", ErrStateConflict, userID)
		}

		// The escrow debit goes through the ledger so the event is recorded
		// and the balance moves through its single owner.
		if _, err := s.ledger.CreateEntryInTx(ctx, qtx, CreateEntryParams{
			UserID:      userID,
			LogicalType: domain.TypeTonWithdrawal,
			Amount:      domain.NewTON(amount),
			Extra:       map[string]string{"withdrawal_request_id": requestID.String()},
		}); err != nil {
			return err
		}

		if err := qtx.InsertWithdrawalRequest(ctx, repository.InsertWithdrawalRequestParams{
			ID:          requestID,
			UserID:      userID,
			Amount:      amount,
			Destination: destination,
		}); err != nil {
			return err
		}

		meta, _ := json.Marshal(map[string]string{"destination": destination})
		return s.audit.Write(ctx, qtx, "withdrawal_request", requestID.String(), nil,
			"created", "", domain.WithdrawalStatusPending, meta)
	})
	if err != nil {
		return models.WithdrawalRequest{}, err
	}

	observability.IncrementWithdrawalTransition("created")
	zap.L().Info("withdrawal request created",
		zap.String("request_id", requestID.String()),
		zap.Int64("user_id", userID),
		zap.String("amount_ton", amount.String()),
	)
	return s.Get(ctx, requestID)
}

// Approve moves pending to approved. The balance is untouched: the funds
// were escrowed at creation and are now considered dispatched on-chain.
func (s *WithdrawalService) Approve(ctx context.Context, requestID uuid.UUID, adminID int64) (models.WithdrawalRequest, error) {
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if _, err := s.lockPending(ctx, qtx, requestID, domain.WithdrawalStatusApproved); err != nil {
			return err
		}

		if err := s.decide(ctx, qtx, requestID, domain.WithdrawalStatusApproved, adminID); err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "withdrawal_request", requestID.String(), &adminID,
			"approved", domain.WithdrawalStatusPending, domain.WithdrawalStatusApproved, nil)
	})
	if err != nil {
		return models.WithdrawalRequest{}, err
	}

	observability.IncrementWithdrawalTransition("approved")
	return s.Get(ctx, requestID)
}

// Reject moves pending to rejected and credits the escrowed amount back,
// recording the refund as a ledger entry. The conditional status flip and
// the compensating credit share one transaction, so the system can never
// hold a refunded balance against a still-pending request.
func (s *WithdrawalService) Reject(ctx context.Context, requestID uuid.UUID, adminID int64) (models.WithdrawalRequest, error) {
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		req, err := s.lockPending(ctx, qtx, requestID, domain.WithdrawalStatusRejected)
		if err != nil {
			return err
		}

		if err := s.decide(ctx, qtx, requestID, domain.WithdrawalStatusRejected, adminID); err != nil {
			return err
		}

		if _, err := s.ledger.CreateEntryInTx(ctx, qtx, CreateEntryParams{
			UserID:      req.UserID,
			LogicalType: domain.TypeWithdrawalRefund,
			Amount:      domain.NewTON(req.Amount),
			Extra:       map[string]string{"withdrawal_request_id": requestID.String()},
		}); err != nil {
			return fmt.Errorf("compensating refund credit: %w", err)
		}

		return s.audit.Write(ctx, qtx, "withdrawal_request", requestID.String(), &adminID,
			"rejected", domain.WithdrawalStatusPending, domain.WithdrawalStatusRejected, nil)
	})
	if err != nil {
		return models.WithdrawalRequest{}, err
	}

	observability.IncrementWithdrawalTransition("rejected")
	return s.Get(ctx, requestID)
}

// lockPending loads the request under FOR UPDATE and verifies the intended
// transition is legal from its current state.
func (s *WithdrawalService) lockPending(ctx context.Context, qtx *repository.Queries, requestID uuid.UUID, next string) (models.WithdrawalRequest, error) {
	req, err := qtx.GetWithdrawalRequestForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WithdrawalRequest{}, fmt.Errorf("%w: %s", ErrNotFound, requestID)
		}
		return models.WithdrawalRequest{}, fmt.Errorf("load withdrawal request: %w", err)
	}
	if !CanTransitionWithdrawal(req.Status, next) {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: request %s is %s", ErrStateConflict, requestID, req.Status)
	}
	return req, nil
}

// decide performs the conditional status flip. Zero rows affected means a
// concurrent decision won the race after our lock check, which the row lock
// normally prevents; it still maps to the same state conflict.
func (s *WithdrawalService) decide(ctx context.Context, qtx *repository.Queries, requestID uuid.UUID, status string, adminID int64) error {
	rows, err := qtx.DecideWithdrawal(ctx, repository.DecideWithdrawalParams{
		ID:          requestID,
		Status:      status,
		ProcessedBy: adminID,
	})
	if err != nil {
		return err
	}
	if rows != 1 {
		return fmt.Errorf("%w: request %s was decided concurrently", ErrStateConflict, requestID)
	}
	return nil
}

// Get loads one request.
func (s *WithdrawalService) Get(ctx context.Context, requestID uuid.UUID) (models.WithdrawalRequest, error) {
	req, err := s.store.Queries().GetWithdrawalRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WithdrawalRequest{}, fmt.Errorf("%w: %s", ErrNotFound, requestID)
		}
		return models.WithdrawalRequest{}, fmt.Errorf("get withdrawal request: %w", err)
	}
	return req, nil
}

// ListByStatus returns the admin review queue, oldest first.
func (s *WithdrawalService) ListByStatus(ctx context.Context, status string, limit, offset int32) ([]models.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Queries().ListWithdrawalsByStatus(ctx, status, limit, offset)
}
