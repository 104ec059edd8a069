package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/siyaram/article-server/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS articles (
            id SERIAL PRIMARY KEY,
            article_number VARCHAR(255) NOT NULL UNIQUE,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS images (
            id SERIAL PRIMARY KEY,
            article_id INT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
            image_path VARCHAR(255) NOT NULL,
            uploaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_images_article_id ON images(article_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *PostgresStore) CreateArticle(ctx context.Context, articleNumber string, imagePaths []string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO articles (article_number, created_at) VALUES ($1, $2) RETURNING id`,
		articleNumber, now,
	).Scan(&id)
	if err != nil {
		if isPQUniqueViolation(err) {
			return 0, fmt.Errorf("insert article %q: %w", articleNumber, ErrDuplicateArticleNumber)
		}
		return 0, err
	}

	for _, path := range imagePaths {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO images (article_id, image_path, uploaded_at) VALUES ($1, $2, $3)`,
			id, path, now,
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return id, nil
}

func (s *PostgresStore) UpdateArticle(ctx context.Context, id int64, articleNumber string, imagePaths []string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM articles WHERE id = $1`, id).Scan(&existing)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE articles SET article_number = $1 WHERE id = $2`,
		articleNumber, id,
	); err != nil {
		if isPQUniqueViolation(err) {
			return nil, fmt.Errorf("update article %q: %w", articleNumber, ErrDuplicateArticleNumber)
		}
		return nil, err
	}

	var superseded []string
	if len(imagePaths) > 0 {
		superseded, err = imagePathsForArticle(ctx, tx, `SELECT image_path FROM images WHERE article_id = $1 ORDER BY id`, id)
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE article_id = $1`, id); err != nil {
			return nil, err
		}

		now := time.Now()
		for _, path := range imagePaths {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO images (article_id, image_path, uploaded_at) VALUES ($1, $2, $3)`,
				id, path, now,
			); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return superseded, nil
}

func (s *PostgresStore) DeleteArticle(ctx context.Context, id int64) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM articles WHERE id = $1`, id).Scan(&existing)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doomed, err := imagePathsForArticle(ctx, tx, `SELECT image_path FROM images WHERE article_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}

	// Cascade constraint removes the image rows in the same statement.
	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return doomed, nil
}

func (s *PostgresStore) ListArticles(ctx context.Context) ([]*models.Article, error) {
	query := `
        SELECT a.id, a.article_number, a.created_at, i.id, i.image_path
        FROM articles a
        LEFT JOIN images i ON i.article_id = a.id
        ORDER BY a.created_at DESC, a.id DESC, i.id ASC
    `

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return assembleArticles(rows)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func isPQUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func imagePathsForArticle(ctx context.Context, tx *sql.Tx, query string, articleID int64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}

// assembleArticles folds the joined rows into articles with their images
// in insertion order. Articles without images get an empty, non-nil slice
// so they serialize as [] rather than null.
func assembleArticles(rows *sql.Rows) ([]*models.Article, error) {
	var articles []*models.Article
	byID := make(map[int64]*models.Article)

	for rows.Next() {
		var (
			article   models.Article
			imageID   sql.NullInt64
			imagePath sql.NullString
		)

		if err := rows.Scan(&article.ID, &article.ArticleNumber, &article.CreatedAt, &imageID, &imagePath); err != nil {
			return nil, err
		}

		current, ok := byID[article.ID]
		if !ok {
			article.Images = []models.Image{}
			current = &article
			byID[article.ID] = current
			articles = append(articles, current)
		}

		if imageID.Valid {
			current.Images = append(current.Images, models.Image{
				ID:        imageID.Int64,
				ArticleID: current.ID,
				Path:      imagePath.String,
			})
		}
	}

	return articles, rows.Err()
}
