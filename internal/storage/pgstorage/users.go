package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/postmarket/postmarket/internal/domain/users"
	"github.com/postmarket/postmarket/internal/storage"
	"github.com/postmarket/postmarket/internal/storage/dbmodels"
)

func userFromDB(dbUser *dbmodels.User) (*users.User, error) {
	role, err := users.ParseRole(dbUser.Role)
	if err != nil {
		return nil, fmt.Errorf("users.ParseRole: %w", err)
	}

	status, err := users.ParseStatus(dbUser.Status)
	if err != nil {
		return nil, fmt.Errorf("users.ParseStatus: %w", err)
	}

	return &users.User{
		ID:           dbUser.ID,
		Login:        dbUser.Login,
		PasswordHash: dbUser.PasswordHash,
		Role:         role,
		Status:       status,
		Balance:      dbUser.Balance,
		RegisteredAt: dbUser.RegisteredAt,
	}, nil
}

func (s *Storage) CreateUser(ctx context.Context, usr *users.User) error {
	err := WithRetry(func() error {
		query := `INSERT INTO users (id, login, password_hash, role, status, balance, registered_at)` +
			` VALUES ($1, $2, $3, $4, $5, $6, $7)`

		if _, err := s.db.ExecContext(ctx, query,
			usr.ID, usr.Login, usr.PasswordHash, string(usr.Role), string(usr.Status), usr.Balance, usr.RegisteredAt,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrUserAlreadyExists
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

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*users.User, error) {
	dbUser := new(dbmodels.User)

	err := WithRetry(func() error {
		row := s.db.QueryRowContext(ctx, query, arg)

		if err := row.Scan(
			&dbUser.ID, &dbUser.Login, &dbUser.PasswordHash, &dbUser.Role,
			&dbUser.Status, &dbUser.Balance, &dbUser.RegisteredAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return userFromDB(dbUser)
}

func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*users.User, error) {
	query := `SELECT id, login, password_hash, role, status, balance, registered_at FROM users WHERE login = $1`

	return s.getUser(ctx, query, login)
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*users.User, error) {
	query := `SELECT id, login, password_hash, role, status, balance, registered_at FROM users WHERE id = $1`

	return s.getUser(ctx, query, id)
}

func (s *Storage) ListUsers(ctx context.Context, page storage.Page) ([]*users.User, int, error) {
	dbUsers := make([]*dbmodels.User, 0)

	var total int

	err := WithRetry(func() error {
		query := `SELECT id, login, password_hash, role, status, balance, registered_at,` +
			` COUNT(*) OVER() AS total FROM users ORDER BY registered_at DESC LIMIT $1 OFFSET $2`

		rows, err := s.db.QueryContext(ctx, query, page.Limit, page.Offset())
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbUser := new(dbmodels.User)

			if err := rows.Scan(
				&dbUser.ID, &dbUser.Login, &dbUser.PasswordHash, &dbUser.Role,
				&dbUser.Status, &dbUser.Balance, &dbUser.RegisteredAt, &total,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbUsers = append(dbUsers, dbUser)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	bUsers := make([]*users.User, 0, len(dbUsers))

	for _, dbUser := range dbUsers {
		usr, err := userFromDB(dbUser)
		if err != nil {
			return nil, 0, err
		}

		bUsers = append(bUsers, usr)
	}

	return bUsers, total, nil
}

func (s *Storage) UpdateUserStatus(ctx context.Context, id string, status users.Status) error {
	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE users SET status = $1 WHERE id = $2`, string(status), id,
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if affected == 0 {
			return storage.ErrUserNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}
