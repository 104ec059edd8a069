package storage

import (
	"context"
	"errors"

	"github.com/siyaram/article-server/internal/models"
)

var (
	// ErrNotFound is returned when the referenced article does not exist.
	ErrNotFound = errors.New("article not found")

	// ErrDuplicateArticleNumber is returned when an insert or update hits
	// the unique constraint on article_number.
	ErrDuplicateArticleNumber = errors.New("article number already exists")
)

// Store runs each mutation inside a single database transaction. The
// returned path slices are the image files the caller must remove from
// disk after the transaction has committed, never before.
type Store interface {
	Initialize() error
	Close() error

	// CreateArticle inserts an article and one image row per staged file
	// path. Any failure rolls back the whole transaction.
	CreateArticle(ctx context.Context, articleNumber string, imagePaths []string) (int64, error)

	// UpdateArticle changes the article number in place. When imagePaths
	// is non-empty the article's current image rows are replaced and the
	// superseded paths are returned; otherwise image rows are untouched.
	UpdateArticle(ctx context.Context, id int64, articleNumber string, imagePaths []string) ([]string, error)

	// DeleteArticle removes the article; the cascade constraint removes
	// its image rows in the same statement. Returns the doomed paths.
	DeleteArticle(ctx context.Context, id int64) ([]string, error)

	// ListArticles returns every article with its images aggregated in
	// insertion order, newest article first.
	ListArticles(ctx context.Context) ([]*models.Article, error)
}
