package pgstorage

import (
	"context"
	"fmt"

	"github.com/postmarket/postmarket/internal/domain/fundrequests"
	"github.com/postmarket/postmarket/internal/domain/orders"
	"github.com/postmarket/postmarket/internal/domain/users"
	"github.com/postmarket/postmarket/internal/domain/websites"
	"github.com/postmarket/postmarket/internal/storage"
	"github.com/postmarket/postmarket/internal/storage/dbmodels"
	"github.com/shopspring/decimal"
)

// recentOrdersLimit is the size of the dashboard's latest-orders digest.
const recentOrdersLimit = 5

func (s *Storage) GetAdminStats(ctx context.Context) (*storage.AdminStats, error) {
	stats := &storage.AdminStats{
		OrdersByStatus:   make(map[orders.Status]int),
		CompletedRevenue: decimal.Zero,
		PaidFundsTotal:   decimal.Zero,
	}

	err := WithRetry(func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1) FROM users`,
			string(users.StatusActive),
		)
		if err := row.Scan(&stats.TotalUsers, &stats.ActiveUsers); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		row = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1) FROM websites`,
			string(websites.StatusActive),
		)
		if err := row.Scan(&stats.TotalWebsites, &stats.ActiveWebsites); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				status string
				count  int
			)

			if err := rows.Scan(&status, &count); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			stats.OrdersByStatus[orders.Status(status)] = count
			stats.TotalOrders += count
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		row = s.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(price), 0) FROM orders WHERE status = $1`,
			string(orders.StatusCompleted),
		)
		if err := row.Scan(&stats.CompletedRevenue); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		row = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FILTER (WHERE status = $1), COALESCE(SUM(amount) FILTER (WHERE status = $2), 0)`+
				` FROM fund_requests`,
			string(fundrequests.StatusPending), string(fundrequests.StatusPaid),
		)
		if err := row.Scan(&stats.PendingFundRequests, &stats.PaidFundsTotal); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	recent, err := s.recentOrders(ctx)
	if err != nil {
		return nil, err
	}

	stats.RecentOrders = recent

	return stats, nil
}

func (s *Storage) recentOrders(ctx context.Context) ([]*orders.Order, error) {
	dbOrders := make([]*dbmodels.Order, 0, recentOrdersLimit)

	err := WithRetry(func() error {
		query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`

		rows, err := s.db.QueryContext(ctx, query, recentOrdersLimit)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbOrder := new(dbmodels.Order)

			if err := scanOrder(rows, dbOrder); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbOrders = append(dbOrders, dbOrder)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	bOrders := make([]*orders.Order, 0, len(dbOrders))

	for _, dbOrder := range dbOrders {
		order, err := orderFromDB(dbOrder)
		if err != nil {
			return nil, err
		}

		bOrders = append(bOrders, order)
	}

	return bOrders, nil
}
