package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go-job-feed-watcher/internal/models"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// PostingReader is the read side of the posting store.
type PostingReader interface {
	Get(ctx context.Context, id int64) (*models.Posting, error)
	ListAll(ctx context.Context) ([]models.Posting, error)
}

// SecretTokenHeader carries the secret registered with setWebhook on every
// update Telegram delivers.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler receives updates posted to the Telegram webhook.
type UpdateHandler func(ctx context.Context, update tgbotapi.Update)

// Webhook enables POST /webhook/telegram. Requests without Secret in
// SecretTokenHeader are rejected.
type Webhook struct {
	Secret string
	Handle UpdateHandler
}

type Server struct {
	store   PostingReader
	webhook *Webhook
	log     logrus.FieldLogger
	router  *gin.Engine
}

// New builds the HTTP surface. The webhook route is only registered when
// webhook is not nil and has both a secret and a handler.
func New(store PostingReader, webhook *Webhook, log logrus.FieldLogger) *Server {
	s := &Server{
		store:   store,
		webhook: webhook,
		log:     log,
		router:  gin.New(),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())

	s.router.GET("/", s.health)
	s.router.GET("/postings", s.listPostings)
	s.router.GET("/postings/:id", s.getPosting)
	if webhook != nil && webhook.Secret != "" && webhook.Handle != nil {
		s.router.POST("/webhook/telegram", s.requireSecret(), s.telegramWebhook)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("http request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Job feed watcher is running!",
		"status":  "healthy",
	})
}

func (s *Server) listPostings(c *gin.Context) {
	postings, err := s.store.ListAll(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("❌ Failed to list postings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list postings"})
		return
	}
	if postings == nil {
		postings = []models.Posting{}
	}
	c.JSON(http.StatusOK, postings)
}

func (s *Server) getPosting(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	posting, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.log.WithError(err).WithField("job_id", id).Error("❌ Failed to get posting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get posting"})
		return
	}
	if posting == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "posting not found"})
		return
	}
	c.JSON(http.StatusOK, posting)
}

func (s *Server) requireSecret() gin.HandlerFunc {
	want := []byte(s.webhook.Secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(SecretTokenHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			s.log.WithField("remote", c.ClientIP()).Warn("⚠️ Rejected webhook request without a valid secret")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// telegramWebhook answers 200 for every parsable update, whatever the handler did.
func (s *Server) telegramWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	s.webhook.Handle(c.Request.Context(), update)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
