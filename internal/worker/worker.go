package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finledger/internal/ledger"
	"finledger/internal/services"
	"finledger/internal/store"
)

type RecurringStore interface {
	ListDue(ctx context.Context, now time.Time) ([]store.RecurringTemplate, error)
	AdvanceNextRun(ctx context.Context, templateID string, nextRunAt time.Time) error
}

type OperationSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type LedgerService interface {
	CreateTransaction(ctx context.Context, req services.CreateTransactionRequest) (ledger.Transaction, error)
}

// Worker runs the two periodic jobs: materializing due recurring templates
// into transactions, and sweeping expired operation log rows. Each
// materialization carries a deterministic operation id derived from the
// template and period, so a crashed or overlapping cycle cannot create the
// same month's transaction twice.
type Worker struct {
	recurring  RecurringStore
	operations OperationSweeper
	service    LedgerService
	interval   time.Duration
	logger     *slog.Logger
}

func New(recurring RecurringStore, operations OperationSweeper, service LedgerService, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		recurring:  recurring,
		operations: operations,
		service:    service,
		interval:   interval,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled, executing one cycle immediately and then
// one per interval.
func (w *Worker) Run(ctx context.Context) {
	w.runCycle(ctx, time.Now().UTC())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		case now := <-ticker.C:
			w.runCycle(ctx, now.UTC())
		}
	}
}

func (w *Worker) runCycle(ctx context.Context, now time.Time) {
	created, err := w.MaterializeDue(ctx, now)
	if err != nil {
		w.logger.Error("recurring materialization failed", "error", err)
	} else if created > 0 {
		w.logger.Info("recurring templates materialized", "created", created)
	}
	swept, err := w.operations.DeleteExpired(ctx, now)
	if err != nil {
		w.logger.Error("operation log sweep failed", "error", err)
	} else if swept > 0 {
		w.logger.Info("expired operations swept", "deleted", swept)
	}
}

// MaterializeDue creates one transaction per due active template and advances
// each template's next run a month forward. A template whose creation fails
// keeps its next_run_at so the next cycle retries it; a duplicate means a
// previous cycle already did the work, and the template is advanced anyway.
func (w *Worker) MaterializeDue(ctx context.Context, now time.Time) (int, error) {
	due, err := w.recurring.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, tpl := range due {
		opID := materializationID(tpl.ID, tpl.NextRunAt)
		_, err := w.service.CreateTransaction(ctx, services.CreateTransactionRequest{
			ActorID:              tpl.UserID,
			AccountID:            tpl.AccountID,
			CategoryID:           tpl.CategoryID,
			Type:                 ledger.TransactionType(tpl.Type),
			AmountMinor:          tpl.Amount,
			Description:          tpl.Description,
			CompetenceDate:       tpl.NextRunAt,
			Status:               ledger.StatusPending,
			OperationID:          &opID,
			RecurrenceTemplateID: &tpl.ID,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, services.ErrDuplicateOperation):
			w.logger.Info("recurring run already materialized", "template_id", tpl.ID, "operation_id", opID)
		default:
			w.logger.Error("failed to materialize recurring template", "template_id", tpl.ID, "error", err)
			continue
		}
		next := tpl.NextRunAt.AddDate(0, 1, 0)
		if err := w.recurring.AdvanceNextRun(ctx, tpl.ID, next); err != nil {
			w.logger.Error("failed to advance template", "template_id", tpl.ID, "error", err)
		}
	}
	return created, nil
}

// materializationID keys a template run to its period. The operation log's
// uniqueness on this id is what makes worker cycles idempotent.
func materializationID(templateID string, runAt time.Time) string {
	return fmt.Sprintf("rec-%s-%s", templateID, runAt.Format("2006-01"))
}
