package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/postmarket/postmarket/internal/domain/fundrequests"
	"github.com/postmarket/postmarket/internal/storage"
	"github.com/postmarket/postmarket/internal/storage/dbmodels"
	"github.com/shopspring/decimal"
)

const fundRequestColumns = `id, user_id, amount, status, admin_notes, processed_by, processed_at, created_at`

func fundRequestFromDB(dbReq *dbmodels.FundRequest) (*fundrequests.FundRequest, error) {
	req, err := fundrequests.NewFundRequest(
		dbReq.ID,
		dbReq.UserID,
		dbReq.Amount,
		fundrequests.Status(dbReq.Status),
		dbReq.AdminNotes.String,
		dbReq.ProcessedBy.String,
		dbReq.ProcessedAt.Time,
		dbReq.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("fundrequests.NewFundRequest: %w", err)
	}

	return req, nil
}

func scanFundRequest(row interface{ Scan(...any) error }, dbReq *dbmodels.FundRequest, extra ...any) error {
	dest := []any{
		&dbReq.ID, &dbReq.UserID, &dbReq.Amount, &dbReq.Status,
		&dbReq.AdminNotes, &dbReq.ProcessedBy, &dbReq.ProcessedAt, &dbReq.CreatedAt,
	}
	dest = append(dest, extra...)

	return row.Scan(dest...)
}

func (s *Storage) CreateFundRequest(ctx context.Context, req *fundrequests.FundRequest) error {
	err := WithRetry(func() error {
		query := `INSERT INTO fund_requests (id, user_id, amount, status, created_at)` +
			` VALUES ($1, $2, $3, $4, $5)`

		if _, err := s.db.ExecContext(ctx, query,
			req.ID(), req.UserID(), req.Amount(), string(req.Status()), req.CreatedAt(),
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetFundRequest(ctx context.Context, id string) (*fundrequests.FundRequest, error) {
	dbReq := new(dbmodels.FundRequest)

	err := WithRetry(func() error {
		query := `SELECT ` + fundRequestColumns + ` FROM fund_requests WHERE id = $1`

		row := s.db.QueryRowContext(ctx, query, id)

		if err := scanFundRequest(row, dbReq); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrFundRequestNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return fundRequestFromDB(dbReq)
}

func (s *Storage) ListFundRequests(ctx context.Context, filter storage.FundRequestFilter, page storage.Page) ([]*fundrequests.FundRequest, int, error) {
	dbReqs := make([]*dbmodels.FundRequest, 0)

	var total int

	err := WithRetry(func() error {
		query := `SELECT ` + fundRequestColumns + `, COUNT(*) OVER() AS total FROM fund_requests` +
			` WHERE ($1 = '' OR user_id::text = $1) AND ($2 = '' OR status = $2)` +
			` ORDER BY created_at DESC LIMIT $3 OFFSET $4`

		rows, err := s.db.QueryContext(ctx, query,
			filter.UserID, string(filter.Status), page.Limit, page.Offset(),
		)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbReq := new(dbmodels.FundRequest)

			if err := scanFundRequest(rows, dbReq, &total); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbReqs = append(dbReqs, dbReq)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	bReqs := make([]*fundrequests.FundRequest, 0, len(dbReqs))

	for _, dbReq := range dbReqs {
		req, err := fundRequestFromDB(dbReq)
		if err != nil {
			return nil, 0, err
		}

		bReqs = append(bReqs, req)
	}

	return bReqs, total, nil
}

func (s *Storage) GetFundRequestsByStatus(ctx context.Context, statuses ...fundrequests.Status) ([]*fundrequests.FundRequest, error) {
	dbReqs := make([]*dbmodels.FundRequest, 0)

	err := WithRetry(func() error {
		query := `SELECT ` + fundRequestColumns + ` FROM fund_requests`

		args := make([]any, 0, 1)

		if len(statuses) > 0 {
			query += ` WHERE status = ANY($1)`

			args = append(args, pq.Array(statusStrings(statuses)))
		}

		query += ` ORDER BY created_at DESC`

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbReq := new(dbmodels.FundRequest)

			if err := scanFundRequest(rows, dbReq); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbReqs = append(dbReqs, dbReq)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	bReqs := make([]*fundrequests.FundRequest, 0, len(dbReqs))

	for _, dbReq := range dbReqs {
		req, err := fundRequestFromDB(dbReq)
		if err != nil {
			return nil, err
		}

		bReqs = append(bReqs, req)
	}

	return bReqs, nil
}

// ApproveFundRequest marks the request paid and credits the owner's balance
// in a single transaction. The status update is conditional on the current
// status, so two concurrent approvals credit the balance exactly once.
func (s *Storage) ApproveFundRequest(ctx context.Context, id, processedBy string) error {
	sources := statusStrings(fundrequests.TransitionSources(fundrequests.StatusPaid))

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		var (
			userID string
			amount decimal.Decimal
		)

		row := tx.QueryRowContext(ctx,
			`UPDATE fund_requests SET status = $1, processed_by = $2, processed_at = $3`+
				` WHERE id = $4 AND status = ANY($5) RETURNING user_id, amount`,
			string(fundrequests.StatusPaid), processedBy, time.Now(), id, pq.Array(sources),
		)

		if err := row.Scan(&userID, &amount); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return s.fundRequestUpdateFailure(ctx, id)
			}

			return fmt.Errorf("tx.QueryRowContext: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE users SET balance = balance + $1 WHERE id = $2`,
			amount, userID,
		)
		if err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		// Missing owner rolls the whole approval back: the request must not
		// end up paid without the balance credit.
		if affected == 0 {
			return storage.ErrUserNotFound
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) RejectFundRequest(ctx context.Context, id, processedBy, notes string) error {
	sources := statusStrings(fundrequests.TransitionSources(fundrequests.StatusRejected))

	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE fund_requests SET status = $1, processed_by = $2, processed_at = $3, admin_notes = $4`+
				` WHERE id = $5 AND status = ANY($6)`,
			string(fundrequests.StatusRejected), processedBy, time.Now(), notes, id, pq.Array(sources),
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if affected == 0 {
			return s.fundRequestUpdateFailure(ctx, id)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) MarkFundRequestInvoiced(ctx context.Context, id string) error {
	sources := statusStrings(fundrequests.TransitionSources(fundrequests.StatusInvoiceSent))

	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE fund_requests SET status = $1 WHERE id = $2 AND status = ANY($3)`,
			string(fundrequests.StatusInvoiceSent), id, pq.Array(sources),
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if affected == 0 {
			return s.fundRequestUpdateFailure(ctx, id)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// fundRequestUpdateFailure distinguishes a missing request from one whose
// current status forbids the attempted transition.
func (s *Storage) fundRequestUpdateFailure(ctx context.Context, id string) error {
	var status string

	row := s.db.QueryRowContext(ctx, `SELECT status FROM fund_requests WHERE id = $1`, id)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrFundRequestNotFound
		}

		return fmt.Errorf("db.QueryRowContext: %w", err)
	}

	return storage.ErrFundRequestStateInvalid
}
