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
	"github.com/postmarket/postmarket/internal/domain/orders"
	"github.com/postmarket/postmarket/internal/storage"
	"github.com/postmarket/postmarket/internal/storage/dbmodels"
)

const orderColumns = `id, user_id, item_name, price, status, article_text, attachment_name,` +
	` attachment_data, submission_message, completion_message, completion_link, completed_at, created_at`

func orderFromDB(dbOrder *dbmodels.Order) (*orders.Order, error) {
	submission := orders.Submission{
		ArticleText:    dbOrder.ArticleText.String,
		AttachmentName: dbOrder.AttachmentName.String,
		AttachmentData: dbOrder.AttachmentData.String,
		Message:        dbOrder.SubmissionMessage.String,
	}

	completion := orders.Completion{
		Message:     dbOrder.CompletionMessage.String,
		Link:        dbOrder.CompletionLink.String,
		CompletedAt: dbOrder.CompletedAt.Time,
	}

	order, err := orders.NewOrder(
		dbOrder.ID,
		dbOrder.UserID,
		dbOrder.ItemName,
		dbOrder.Price,
		orders.Status(dbOrder.Status),
		submission,
		completion,
		dbOrder.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("orders.NewOrder: %w", err)
	}

	return order, nil
}

func scanOrder(row interface{ Scan(...any) error }, dbOrder *dbmodels.Order, extra ...any) error {
	dest := []any{
		&dbOrder.ID, &dbOrder.UserID, &dbOrder.ItemName, &dbOrder.Price, &dbOrder.Status,
		&dbOrder.ArticleText, &dbOrder.AttachmentName, &dbOrder.AttachmentData,
		&dbOrder.SubmissionMessage, &dbOrder.CompletionMessage, &dbOrder.CompletionLink,
		&dbOrder.CompletedAt, &dbOrder.CreatedAt,
	}
	dest = append(dest, extra...)

	return row.Scan(dest...)
}

func statusStrings[T ~string](statuses []T) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}

	return out
}

func (s *Storage) CreateOrder(ctx context.Context, order *orders.Order) error {
	err := WithRetry(func() error {
		query := `INSERT INTO orders (id, user_id, item_name, price, status, created_at)` +
			` VALUES ($1, $2, $3, $4, $5, $6)`

		if _, err := s.db.ExecContext(ctx, query,
			order.ID(), order.UserID(), order.ItemName(), order.Price(),
			string(order.Status()), order.CreatedAt(),
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrOrderAlreadyExists
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

func (s *Storage) GetOrder(ctx context.Context, id string) (*orders.Order, error) {
	dbOrder := new(dbmodels.Order)

	err := WithRetry(func() error {
		query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

		row := s.db.QueryRowContext(ctx, query, id)

		if err := scanOrder(row, dbOrder); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrOrderNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return orderFromDB(dbOrder)
}

func (s *Storage) ListOrders(ctx context.Context, filter storage.OrderFilter, page storage.Page) ([]*orders.Order, int, error) {
	dbOrders := make([]*dbmodels.Order, 0)

	var total int

	err := WithRetry(func() error {
		query := `SELECT ` + orderColumns + `, COUNT(*) OVER() AS total FROM orders` +
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
			dbOrder := new(dbmodels.Order)

			if err := scanOrder(rows, dbOrder, &total); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbOrders = append(dbOrders, dbOrder)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	bOrders := make([]*orders.Order, 0, len(dbOrders))

	for _, dbOrder := range dbOrders {
		order, err := orderFromDB(dbOrder)
		if err != nil {
			return nil, 0, err
		}

		bOrders = append(bOrders, order)
	}

	return bOrders, total, nil
}

// TransitionOrder conditionally updates the order status. The WHERE clause
// carries the allowed source statuses, so a concurrent transition cannot be
// applied twice.
func (s *Storage) TransitionOrder(ctx context.Context, id string, to orders.Status) error {
	sources := statusStrings(orders.TransitionSources(to))

	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE orders SET status = $1 WHERE id = $2 AND status = ANY($3)`,
			string(to), id, pq.Array(sources),
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if affected == 0 {
			return s.orderUpdateFailure(ctx, id)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CompleteOrder(ctx context.Context, id, message, link string, completedAt time.Time) error {
	sources := statusStrings(orders.TransitionSources(orders.StatusCompleted))

	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE orders SET status = $1, completion_message = $2, completion_link = $3, completed_at = $4`+
				` WHERE id = $5 AND status = ANY($6)`,
			string(orders.StatusCompleted), message, link, completedAt, id, pq.Array(sources),
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if affected == 0 {
			return s.orderUpdateFailure(ctx, id)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) UpdateOrderSubmission(ctx context.Context, id, userID string, submission orders.Submission) error {
	openStatuses := []string{string(orders.StatusPending), string(orders.StatusProcessing)}

	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE orders SET article_text = $1, attachment_name = $2, attachment_data = $3, submission_message = $4`+
				` WHERE id = $5 AND user_id = $6 AND status = ANY($7)`,
			submission.ArticleText, submission.AttachmentName, submission.AttachmentData, submission.Message,
			id, userID, pq.Array(openStatuses),
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if affected == 0 {
			// An order owned by another user is reported as not found.
			var owner string

			row := s.db.QueryRowContext(ctx, `SELECT user_id FROM orders WHERE id = $1`, id)
			if err := row.Scan(&owner); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return storage.ErrOrderNotFound
				}

				return fmt.Errorf("db.QueryRowContext: %w", err)
			}

			if owner != userID {
				return storage.ErrOrderNotFound
			}

			return storage.ErrOrderStateInvalid
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// orderUpdateFailure distinguishes a missing order from one whose current
// status forbids the attempted transition.
func (s *Storage) orderUpdateFailure(ctx context.Context, id string) error {
	var status string

	row := s.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrOrderNotFound
		}

		return fmt.Errorf("db.QueryRowContext: %w", err)
	}

	return storage.ErrOrderStateInvalid
}
