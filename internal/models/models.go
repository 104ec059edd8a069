package models

import (
	"time"
)

type Article struct {
	ID            int64     `json:"id"`
	ArticleNumber string    `json:"article_number"`
	CreatedAt     time.Time `json:"created_at"`
	Images        []Image   `json:"images"`
}

type Image struct {
	ID         int64     `json:"id"`
	ArticleID  int64     `json:"-"`
	Path       string    `json:"path"`
	UploadedAt time.Time `json:"-"`
}

// StagedFile is an uploaded file already written into the upload
// directory, waiting to be referenced by an image row.
type StagedFile struct {
	Path         string
	OriginalName string
	Size         int64
}
