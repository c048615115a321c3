package audit

import (
	"context"
	"io"

	"go-regula/internal/common/clock"
	"go-regula/internal/database"

	"github.com/google/uuid"
)

// Ledger is the append-only, hash-chained audit trail keyed by workflow.
type Ledger interface {
	// Append joins the caller's transaction when one is active.
	Append(ctx context.Context, entry Entry) (Entry, error)
	List(ctx context.Context, workflowID string) ([]Entry, error)
	Verify(ctx context.Context, workflowID string) (VerifyResult, error)
	Export(ctx context.Context, workflowID string, w io.Writer) error
}

type LedgerImpl struct {
	DB    *database.Database
	Repo  AuditRepository
	Clock clock.Clock
}

func NewLedger(db *database.Database, repo AuditRepository, clk clock.Clock) Ledger {
	return &LedgerImpl{
		DB:    db,
		Repo:  repo,
		Clock: clk,
	}
}

func (l *LedgerImpl) Append(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.Clock.Now()
	}

	err := l.DB.WithTx(ctx, func(ctx context.Context) error {
		prev, err := l.Repo.LastHash(ctx, entry.WorkflowID)
		if err != nil {
			return err
		}
		entry.PrevHash = prev
		if entry.Hash, err = HashEntry(entry); err != nil {
			return err
		}
		return l.Repo.Insert(ctx, &entry)
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (l *LedgerImpl) List(ctx context.Context, workflowID string) ([]Entry, error) {
	return l.Repo.ListByWorkflow(ctx, workflowID)
}

func (l *LedgerImpl) Verify(ctx context.Context, workflowID string) (VerifyResult, error) {
	entries, err := l.Repo.ListChain(ctx, workflowID)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyChain(workflowID, entries), nil
}

func (l *LedgerImpl) Export(ctx context.Context, workflowID string, w io.Writer) error {
	entries, err := l.Repo.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}
	return WriteXLSX(w, entries)
}
