package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/siyaram/article-server/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Cascade deletes need the foreign_keys pragma on every connection.
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", dbPath))
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS articles (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            article_number TEXT NOT NULL UNIQUE,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS images (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
            image_path TEXT NOT NULL,
            uploaded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
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

func (s *SQLiteStore) CreateArticle(ctx context.Context, articleNumber string, imagePaths []string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO articles (article_number, created_at) VALUES (?, ?)`,
		articleNumber, now,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return 0, fmt.Errorf("insert article %q: %w", articleNumber, ErrDuplicateArticleNumber)
		}
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, path := range imagePaths {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO images (article_id, image_path, uploaded_at) VALUES (?, ?, ?)`,
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

func (s *SQLiteStore) UpdateArticle(ctx context.Context, id int64, articleNumber string, imagePaths []string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM articles WHERE id = ?`, id).Scan(&existing)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE articles SET article_number = ? WHERE id = ?`,
		articleNumber, id,
	); err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, fmt.Errorf("update article %q: %w", articleNumber, ErrDuplicateArticleNumber)
		}
		return nil, err
	}

	var superseded []string
	if len(imagePaths) > 0 {
		superseded, err = imagePathsForArticle(ctx, tx, `SELECT image_path FROM images WHERE article_id = ? ORDER BY id`, id)
		if err != nil {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE article_id = ?`, id); err != nil {
			return nil, err
		}

		now := time.Now()
		for _, path := range imagePaths {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO images (article_id, image_path, uploaded_at) VALUES (?, ?, ?)`,
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

func (s *SQLiteStore) DeleteArticle(ctx context.Context, id int64) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM articles WHERE id = ?`, id).Scan(&existing)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doomed, err := imagePathsForArticle(ctx, tx, `SELECT image_path FROM images WHERE article_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return doomed, nil
}

func (s *SQLiteStore) ListArticles(ctx context.Context) ([]*models.Article, error) {
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
