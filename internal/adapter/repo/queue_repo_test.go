package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sakuga/internal/domain"
)

// scriptedDB implements DB with per-call hooks and records every
// statement it sees.
type scriptedDB struct {
	execFn     func(sql string, args []any) (pgconn.CommandTag, error)
	queryRowFn func(sql string, args []any) pgx.Row

	statements []string
	args       [][]any
}

func (s *scriptedDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.statements = append(s.statements, sql)
	s.args = append(s.args, args)
	if s.execFn == nil {
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return s.execFn(sql, args)
}

func (s *scriptedDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	s.statements = append(s.statements, sql)
	s.args = append(s.args, args)
	return nil, fmt.Errorf("unexpected query: %s", sql)
}

func (s *scriptedDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	s.statements = append(s.statements, sql)
	s.args = append(s.args, args)
	if s.queryRowFn == nil {
		return errRow{err: pgx.ErrNoRows}
	}
	return s.queryRowFn(sql, args)
}

// errRow is a pgx.Row that fails every scan.
type errRow struct {
	err error
}

func (r errRow) Scan(...any) error { return r.err }

// jobRow scans a canned job into the column order of queueColumns.
type jobRow struct {
	job domain.Job
}

func (r jobRow) Scan(dest ...any) error {
	if len(dest) != 11 {
		return fmt.Errorf("unexpected scan args: %d", len(dest))
	}
	*(dest[0].(*string)) = r.job.ID
	*(dest[1].(*string)) = r.job.Prompt
	*(dest[2].(*string)) = r.job.Provider
	*(dest[3].(*string)) = r.job.Model
	*(dest[4].(*string)) = r.job.AspectRatio
	*(dest[5].(*int)) = r.job.Count
	*(dest[6].(*domain.JobStatus)) = r.job.Status
	*(dest[7].(*string)) = r.job.Error
	*(dest[8].(*int)) = r.job.RetryCount
	*(dest[9].(*time.Time)) = r.job.CreatedAt
	*(dest[10].(*time.Time)) = r.job.UpdatedAt
	return nil
}

func TestQueueRetryReturnsRequeuedJob(t *testing.T) {
	requeued := domain.Job{
		ID:         "job-1",
		Prompt:     "a red fox",
		Provider:   "openai",
		Count:      1,
		Status:     domain.JobStatusPending,
		RetryCount: 2,
		CreatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
	}
	db := &scriptedDB{
		queryRowFn: func(sql string, args []any) pgx.Row {
			if !strings.Contains(sql, "status = 'failed'") {
				return errRow{err: fmt.Errorf("unexpected statement: %s", sql)}
			}
			if len(args) != 1 || args[0] != "job-1" {
				return errRow{err: fmt.Errorf("unexpected args: %v", args)}
			}
			return jobRow{job: requeued}
		},
	}

	job, err := NewQueueRepository(db).Retry(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Fatalf("status = %q, want %q", job.Status, domain.JobStatusPending)
	}
	if job.RetryCount != 2 {
		t.Fatalf("retry count = %d, want 2", job.RetryCount)
	}
	if len(db.statements) != 1 {
		t.Fatalf("statements = %d, want the conditional update only", len(db.statements))
	}
}

func TestQueueRetryWrongStateVersusMissing(t *testing.T) {
	// The conditional update matches nothing; a follow-up read tells a
	// wrong-state job apart from an absent one.
	pending := domain.Job{ID: "job-1", Status: domain.JobStatusPending}
	db := &scriptedDB{
		queryRowFn: func(sql string, _ []any) pgx.Row {
			if strings.Contains(sql, "UPDATE") {
				return errRow{err: pgx.ErrNoRows}
			}
			return jobRow{job: pending}
		},
	}
	if _, err := NewQueueRepository(db).Retry(context.Background(), "job-1"); !errors.Is(err, domain.ErrInvalidJobState) {
		t.Fatalf("err = %v, want ErrInvalidJobState for a non-failed job", err)
	}
	if len(db.statements) != 2 {
		t.Fatalf("statements = %d, want update then lookup", len(db.statements))
	}

	gone := &scriptedDB{
		queryRowFn: func(string, []any) pgx.Row {
			return errRow{err: pgx.ErrNoRows}
		},
	}
	if _, err := NewQueueRepository(gone).Retry(context.Background(), "job-9"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for a missing job", err)
	}
}

func TestQueueEnqueueForcesPendingState(t *testing.T) {
	db := &scriptedDB{}
	job := &domain.Job{
		ID:         "job-1",
		Prompt:     "a red fox",
		Provider:   "openai",
		Count:      2,
		Status:     domain.JobStatusFailed,
		RetryCount: 7,
	}
	if err := NewQueueRepository(db).Enqueue(context.Background(), job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Fatalf("status = %q, want forced to pending", job.Status)
	}
	if job.RetryCount != 0 {
		t.Fatalf("retry count = %d, want reset to 0", job.RetryCount)
	}
	if len(db.args) != 1 {
		t.Fatalf("exec calls = %d, want 1", len(db.args))
	}
	if got := db.args[0][6]; got != domain.JobStatusPending {
		t.Fatalf("bound status = %v, want pending", got)
	}
}

func TestQueueSetStatusMissingJob(t *testing.T) {
	db := &scriptedDB{
		execFn: func(string, []any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}
	err := NewQueueRepository(db).SetStatus(context.Background(), "missing", domain.JobStatusFailed, "boom")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestQueueResetProcessingCount(t *testing.T) {
	db := &scriptedDB{
		execFn: func(sql string, _ []any) (pgconn.CommandTag, error) {
			if !strings.Contains(sql, "status = 'processing'") {
				return pgconn.CommandTag{}, fmt.Errorf("unexpected statement: %s", sql)
			}
			return pgconn.NewCommandTag("UPDATE 3"), nil
		},
	}
	n, err := NewQueueRepository(db).ResetProcessing(context.Background())
	if err != nil {
		t.Fatalf("reset processing: %v", err)
	}
	if n != 3 {
		t.Fatalf("reset count = %d, want 3", n)
	}
}
