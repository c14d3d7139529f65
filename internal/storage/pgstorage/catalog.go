package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/postmarket/postmarket/internal/domain/blog"
	"github.com/postmarket/postmarket/internal/domain/reviews"
	"github.com/postmarket/postmarket/internal/domain/websites"
	"github.com/postmarket/postmarket/internal/storage"
	"github.com/postmarket/postmarket/internal/storage/dbmodels"
)

func websiteFromDB(dbSite *dbmodels.Website) (*websites.Website, error) {
	status, err := websites.ParseStatus(dbSite.Status)
	if err != nil {
		return nil, fmt.Errorf("websites.ParseStatus: %w", err)
	}

	return &websites.Website{
		ID:              dbSite.ID,
		Domain:          dbSite.Domain,
		Category:        dbSite.Category,
		Price:           dbSite.Price,
		DomainAuthority: dbSite.DomainAuthority,
		MonthlyTraffic:  dbSite.MonthlyTraffic,
		Status:          status,
		CreatedAt:       dbSite.CreatedAt,
	}, nil
}

func (s *Storage) CreateWebsite(ctx context.Context, site *websites.Website) error {
	err := WithRetry(func() error {
		query := `INSERT INTO websites (id, domain, category, price, domain_authority, monthly_traffic, status, created_at)` +
			` VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		if _, err := s.db.ExecContext(ctx, query,
			site.ID, site.Domain, site.Category, site.Price,
			site.DomainAuthority, site.MonthlyTraffic, string(site.Status), site.CreatedAt,
		); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetWebsite(ctx context.Context, id string) (*websites.Website, error) {
	dbSite := new(dbmodels.Website)

	err := WithRetry(func() error {
		query := `SELECT id, domain, category, price, domain_authority, monthly_traffic, status, created_at` +
			` FROM websites WHERE id = $1`

		row := s.db.QueryRowContext(ctx, query, id)

		if err := row.Scan(
			&dbSite.ID, &dbSite.Domain, &dbSite.Category, &dbSite.Price,
			&dbSite.DomainAuthority, &dbSite.MonthlyTraffic, &dbSite.Status, &dbSite.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrWebsiteNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return websiteFromDB(dbSite)
}

func (s *Storage) ListWebsites(ctx context.Context, filter storage.WebsiteFilter, page storage.Page) ([]*websites.Website, int, error) {
	dbSites := make([]*dbmodels.Website, 0)

	var total int

	err := WithRetry(func() error {
		query := `SELECT id, domain, category, price, domain_authority, monthly_traffic, status, created_at,` +
			` COUNT(*) OVER() AS total FROM websites` +
			` WHERE ($1 = '' OR category = $1) AND ($2 = '' OR status = $2)` +
			` ORDER BY created_at DESC LIMIT $3 OFFSET $4`

		rows, err := s.db.QueryContext(ctx, query,
			filter.Category, string(filter.Status), page.Limit, page.Offset(),
		)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbSite := new(dbmodels.Website)

			if err := rows.Scan(
				&dbSite.ID, &dbSite.Domain, &dbSite.Category, &dbSite.Price,
				&dbSite.DomainAuthority, &dbSite.MonthlyTraffic, &dbSite.Status, &dbSite.CreatedAt, &total,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbSites = append(dbSites, dbSite)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	bSites := make([]*websites.Website, 0, len(dbSites))

	for _, dbSite := range dbSites {
		site, err := websiteFromDB(dbSite)
		if err != nil {
			return nil, 0, err
		}

		bSites = append(bSites, site)
	}

	return bSites, total, nil
}

func (s *Storage) UpdateWebsiteStatus(ctx context.Context, id string, status websites.Status) error {
	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE websites SET status = $1 WHERE id = $2`, string(status), id,
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if affected == 0 {
			return storage.ErrWebsiteNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) DeleteWebsite(ctx context.Context, id string) error {
	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM websites WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if affected == 0 {
			return storage.ErrWebsiteNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateBlogPost(ctx context.Context, post *blog.Post) error {
	err := WithRetry(func() error {
		query := `INSERT INTO blog_posts (id, title, slug, body, author, published, created_at)` +
			` VALUES ($1, $2, $3, $4, $5, $6, $7)`

		if _, err := s.db.ExecContext(ctx, query,
			post.ID, post.Title, post.Slug, post.Body, post.Author, post.Published, post.CreatedAt,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrBlogPostAlreadyExists
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

func (s *Storage) GetBlogPostBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	dbPost := new(dbmodels.BlogPost)

	err := WithRetry(func() error {
		query := `SELECT id, title, slug, body, author, published, created_at FROM blog_posts WHERE slug = $1`

		row := s.db.QueryRowContext(ctx, query, slug)

		if err := row.Scan(
			&dbPost.ID, &dbPost.Title, &dbPost.Slug, &dbPost.Body,
			&dbPost.Author, &dbPost.Published, &dbPost.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrBlogPostNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &blog.Post{
		ID:        dbPost.ID,
		Title:     dbPost.Title,
		Slug:      dbPost.Slug,
		Body:      dbPost.Body,
		Author:    dbPost.Author,
		Published: dbPost.Published,
		CreatedAt: dbPost.CreatedAt,
	}, nil
}

func (s *Storage) ListBlogPosts(ctx context.Context, page storage.Page) ([]*blog.Post, int, error) {
	bPosts := make([]*blog.Post, 0)

	var total int

	err := WithRetry(func() error {
		query := `SELECT id, title, slug, body, author, published, created_at, COUNT(*) OVER() AS total` +
			` FROM blog_posts WHERE published ORDER BY created_at DESC LIMIT $1 OFFSET $2`

		rows, err := s.db.QueryContext(ctx, query, page.Limit, page.Offset())
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbPost := new(dbmodels.BlogPost)

			if err := rows.Scan(
				&dbPost.ID, &dbPost.Title, &dbPost.Slug, &dbPost.Body,
				&dbPost.Author, &dbPost.Published, &dbPost.CreatedAt, &total,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			bPosts = append(bPosts, &blog.Post{
				ID:        dbPost.ID,
				Title:     dbPost.Title,
				Slug:      dbPost.Slug,
				Body:      dbPost.Body,
				Author:    dbPost.Author,
				Published: dbPost.Published,
				CreatedAt: dbPost.CreatedAt,
			})
		}

		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return bPosts, total, nil
}

func (s *Storage) DeleteBlogPost(ctx context.Context, id string) error {
	err := WithRetry(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("res.RowsAffected: %w", err)
		}

		if affected == 0 {
			return storage.ErrBlogPostNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateReview(ctx context.Context, review *reviews.Review) error {
	err := WithRetry(func() error {
		query := `INSERT INTO reviews (id, website_id, user_id, rating, comment, created_at)` +
			` VALUES ($1, $2, $3, $4, $5, $6)`

		if _, err := s.db.ExecContext(ctx, query,
			review.ID, review.WebsiteID, review.UserID, review.Rating, review.Comment, review.CreatedAt,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrWebsiteNotFound
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

func (s *Storage) ListReviewsByWebsite(ctx context.Context, websiteID string, page storage.Page) ([]*reviews.Review, int, error) {
	bReviews := make([]*reviews.Review, 0)

	var total int

	err := WithRetry(func() error {
		query := `SELECT id, website_id, user_id, rating, comment, created_at, COUNT(*) OVER() AS total` +
			` FROM reviews WHERE website_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

		rows, err := s.db.QueryContext(ctx, query, websiteID, page.Limit, page.Offset())
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbReview := new(dbmodels.Review)

			if err := rows.Scan(
				&dbReview.ID, &dbReview.WebsiteID, &dbReview.UserID,
				&dbReview.Rating, &dbReview.Comment, &dbReview.CreatedAt, &total,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			bReviews = append(bReviews, &reviews.Review{
				ID:        dbReview.ID,
				WebsiteID: dbReview.WebsiteID,
				UserID:    dbReview.UserID,
				Rating:    dbReview.Rating,
				Comment:   dbReview.Comment,
				CreatedAt: dbReview.CreatedAt,
			})
		}

		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return bReviews, total, nil
}
