package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/siyaram/article-server/internal/cleanup"
	"github.com/siyaram/article-server/internal/models"
	"github.com/siyaram/article-server/internal/storage"
	"github.com/siyaram/article-server/internal/upload"
)

type Handler struct {
	store      storage.Store
	validator  *upload.Validator
	reconciler *cleanup.Reconciler
}

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func NewHandler(store storage.Store, validator *upload.Validator, reconciler *cleanup.Reconciler) *Handler {
	return &Handler{
		store:      store,
		validator:  validator,
		reconciler: reconciler,
	}
}

func (h *Handler) CreateArticle(c *gin.Context) {
	articleNumber := c.PostForm("articleNumber")
	if err := h.validator.ValidateArticleNumber(articleNumber); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Article number is required"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid multipart form"})
		return
	}

	files := form.File["images"]
	if err := h.validator.RequireFiles(files); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "At least one image is required"})
		return
	}

	staged, err := h.validator.Stage(files)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
			return
		}
		log.Printf("Error staging uploads: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to save article", Error: err.Error()})
		return
	}

	id, err := h.store.CreateArticle(c.Request.Context(), articleNumber, stagedPaths(staged))
	if err != nil {
		// Staged files stay on disk; the rows referencing them were
		// rolled back, so they are orphans now.
		log.Printf("Error saving article: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to save article", Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Article and images saved successfully",
		"articleId":  id,
		"imageCount": len(staged),
	})
}

func (h *Handler) UpdateArticle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid article ID"})
		return
	}

	articleNumber := c.PostForm("articleNumber")
	if err := h.validator.ValidateArticleNumber(articleNumber); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Article number is required"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid multipart form"})
		return
	}

	var staged []models.StagedFile
	if headers := form.File["images"]; len(headers) > 0 {
		staged, err = h.validator.Stage(headers)
		if err != nil {
			if isValidationError(err) {
				c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
				return
			}
			log.Printf("Error staging uploads: %v", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to update article", Error: err.Error()})
			return
		}
	}

	superseded, err := h.store.UpdateArticle(c.Request.Context(), id, articleNumber, stagedPaths(staged))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "Article not found"})
			return
		}
		log.Printf("Error updating article: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to update article", Error: err.Error()})
		return
	}

	// Superseded files are removed only after the transaction committed.
	h.reconciler.Remove(superseded)

	c.JSON(http.StatusOK, gin.H{
		"message":        "Article updated successfully",
		"articleId":      id,
		"newImagesCount": len(staged),
	})
}

func (h *Handler) DeleteArticle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid article ID"})
		return
	}

	doomed, err := h.store.DeleteArticle(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "Article not found"})
			return
		}
		log.Printf("Error deleting article: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to delete article", Error: err.Error()})
		return
	}

	h.reconciler.Remove(doomed)

	c.JSON(http.StatusOK, gin.H{"message": "Article deleted successfully"})
}

func (h *Handler) ListArticles(c *gin.Context) {
	articles, err := h.store.ListArticles(c.Request.Context())
	if err != nil {
		log.Printf("Error fetching articles: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to fetch articles"})
		return
	}

	if articles == nil {
		articles = []*models.Article{}
	}

	c.JSON(http.StatusOK, articles)
}

func isValidationError(err error) bool {
	return errors.Is(err, upload.ErrMissingField) ||
		errors.Is(err, upload.ErrMissingFiles) ||
		errors.Is(err, upload.ErrUnsupportedFileType) ||
		errors.Is(err, upload.ErrFileTooLarge) ||
		errors.Is(err, upload.ErrTooManyFiles)
}

func stagedPaths(staged []models.StagedFile) []string {
	paths := make([]string, 0, len(staged))
	for _, file := range staged {
		paths = append(paths, file.Path)
	}
	return paths
}
