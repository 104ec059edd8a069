package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/siyaram/article-server/internal/models"
)

const (
	// MaxFileSize caps each attached file at 10 MiB.
	MaxFileSize = 10 << 20

	// MaxFiles is the most image attachments a single request may carry.
	MaxFiles = 5
)

var (
	ErrMissingField        = errors.New("article number is required")
	ErrMissingFiles        = errors.New("at least one image is required")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum size")
	ErrTooManyFiles        = errors.New("too many files")
)

// Images only. Both the extension and the declared content type must
// match for a file to be accepted.
var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// Validator checks multipart attachments against the image allow-list
// and stages accepted files into the upload directory. Staging happens
// before any database work, so files staged for a request that later
// fails stay on disk as orphans.
type Validator struct {
	dir string
}

func NewValidator(dir string) (*Validator, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &Validator{dir: dir}, nil
}

// Dir returns the upload directory files are staged into.
func (v *Validator) Dir() string {
	return v.dir
}

// ValidateArticleNumber rejects absent or blank article numbers.
func (v *Validator) ValidateArticleNumber(articleNumber string) error {
	if strings.TrimSpace(articleNumber) == "" {
		return ErrMissingField
	}
	return nil
}

// RequireFiles rejects a create request carrying no attachments.
func (v *Validator) RequireFiles(files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return ErrMissingFiles
	}
	return nil
}

// Stage validates every attached file and only then writes them to the
// upload directory, so a rejected request never leaves partial files
// behind. Filenames are a random UUID plus the original extension.
func (v *Validator) Stage(files []*multipart.FileHeader) ([]models.StagedFile, error) {
	if len(files) > MaxFiles {
		return nil, fmt.Errorf("%d files attached, maximum is %d: %w", len(files), MaxFiles, ErrTooManyFiles)
	}

	for _, header := range files {
		if err := checkFile(header); err != nil {
			return nil, err
		}
	}

	staged := make([]models.StagedFile, 0, len(files))
	for _, header := range files {
		path, err := v.saveFile(header)
		if err != nil {
			return nil, err
		}

		staged = append(staged, models.StagedFile{
			Path:         path,
			OriginalName: header.Filename,
			Size:         header.Size,
		})
	}

	return staged, nil
}

func checkFile(header *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("file %q: %w", header.Filename, ErrUnsupportedFileType)
	}

	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	if !allowedContentTypes[contentType] {
		return fmt.Errorf("file %q (%s): %w", header.Filename, contentType, ErrUnsupportedFileType)
	}

	if header.Size > MaxFileSize {
		return fmt.Errorf("file %q is %d bytes: %w", header.Filename, header.Size, ErrFileTooLarge)
	}

	return nil
}

func (v *Validator) saveFile(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file %q: %w", header.Filename, err)
	}
	defer src.Close()

	name := uuid.New().String() + strings.ToLower(filepath.Ext(header.Filename))
	path := filepath.Join(v.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %q: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write %q: %w", path, err)
	}

	return path, nil
}
