// Package web は HTTP ハンドラーとルーティングを提供します。
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/blog-forge/internal/auth"
	"github.com/yourusername/blog-forge/internal/config"
	"github.com/yourusername/blog-forge/internal/jobs"
	"github.com/yourusername/blog-forge/internal/logging"
	"github.com/yourusername/blog-forge/internal/storage"
)

// Version はヘルスチェックで返すバージョンです。
const Version = "0.1.0"

// Store はハンドラーが使う永続化操作です。
type Store interface {
	ListPosts(ctx context.Context) ([]storage.Post, error)
	GetPost(ctx context.Context, id uint) (*storage.Post, error)
	CreatePost(ctx context.Context, post *storage.Post) error
	UpdatePost(ctx context.Context, id uint, fields storage.PostFields) (*storage.Post, error)
	DeletePost(ctx context.Context, id uint) error
	FindUserByEmail(ctx context.Context, email string) (*storage.User, error)
	CreateUser(ctx context.Context, user *storage.User) error
	CreateComment(ctx context.Context, comment *storage.Comment) error
}

// Notifier はコメント通知ジョブの投入と参照を行います。
type Notifier interface {
	NotifyComment(ctx context.Context, commentID, requestedBy uint) (string, error)
	GetRecord(ctx context.Context, jobID string) (*jobs.Record, error)
}

// Server はリクエストハンドラーが共有する依存をまとめたものです。
// 起動時に一度だけ作成します。
type Server struct {
	cfg      *config.Config
	store    Store
	auth     *auth.Manager
	notifier Notifier
	logger   *logrus.Logger
	renderer *htmlRenderer
	now      func() time.Time
}

// NewServer は Server を作成します。notifier は nil でも構いません（通知無効）。
func NewServer(cfg *config.Config, store Store, authManager *auth.Manager, notifier Notifier, logger *logrus.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if authManager == nil {
		return nil, errors.New("auth manager is nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	renderer, err := newHTMLRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	return &Server{
		cfg:      cfg,
		store:    store,
		auth:     authManager,
		notifier: notifier,
		logger:   logger,
		renderer: renderer,
		now:      time.Now,
	}, nil
}

// Router はミドルウェアとルートを登録した gin.Engine を返します。
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.HTMLRender = s.renderer
	// 未設定なら X-Forwarded-For を無視し、ログイン試行制限を接続元 IP で数える
	if err := router.SetTrustedProxies(s.cfg.TrustedProxies()); err != nil {
		s.logger.WithError(err).Warn("invalid TRUSTED_PROXIES; trusting no proxies")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(logging.RequestLogger(s.logger))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.serverError(c, fmt.Errorf("panic: %v", recovered))
	}))

	// セッションストアの設定
	store := cookie.NewStore([]byte(s.cfg.EffectiveSessionSecret()))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   s.auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   s.cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	if origins := s.cfg.AllowedOrigins(); len(origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{
			"Origin",
			"Content-Type",
			"Accept",
			auth.CSRFHeader,
		}
		router.Use(cors.New(corsConfig))
	}

	router.Use(s.auth.LoadUser(s.serverError))
	router.Use(s.auth.VerifyCSRF(s.forbidden))

	s.setupRoutes(router)
	return router
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)

	router.GET("/", s.listPosts)
	router.GET("/register", s.register)
	router.POST("/register", s.register)
	router.GET("/login", s.login)
	router.POST("/login", s.login)
	router.GET("/logout", s.logout)
	router.GET("/post/:id", s.showPost)
	router.POST("/post/:id", s.showPost)
	router.GET("/about", s.about)
	router.GET("/contact", s.contact)
	router.POST("/contact", s.contact)

	router.GET("/new-post", s.newPost)
	router.POST("/new-post", s.newPost)
	router.GET("/edit-post/:id", s.editPost)
	router.POST("/edit-post/:id", s.editPost)
	router.GET("/delete/:id", s.deletePost)

	api := router.Group("/api")
	{
		api.GET("/jobs/:id", s.jobStatus)
	}

	router.NoRoute(func(c *gin.Context) {
		s.notFound(c)
	})
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "blog-forge",
		"version": Version,
	})
}
