package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Server struct {
	router *gin.Engine
	port   int
	server *http.Server
}

func NewServer(port int, corsOrigin string, uploadDir string, handler *Handler) *Server {
	router := gin.Default()

	// Multipart bodies larger than this spill to temp files while parsing.
	router.MaxMultipartMemory = 32 << 20

	// Setup CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Uploaded images are served back as static files.
	router.Static("/uploads", uploadDir)

	// Setup routes
	api := router.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})

		// Articles routes
		articles := api.Group("/articles")
		{
			articles.GET("", handler.ListArticles)
			articles.POST("", handler.CreateArticle)
			articles.PUT("/:id", handler.UpdateArticle)
			articles.DELETE("/:id", handler.DeleteArticle)
		}
	}

	return &Server{
		router: router,
		port:   port,
	}
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
