package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sloghttp "github.com/samber/slog-http"

	activityService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/service"
	channelService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/channel/service"
	deliveryService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/delivery/service"
	feedService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/feed/service"
	postService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/service"
	scheduleService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/schedule/service"
	userDomain "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/user/domain"
	userService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/user/service"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/config"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Server exposes the posting workflow over HTTP
type Server struct {
	cfg        *config.Config
	users      *userService.Service
	channels   *channelService.Service
	fetcher    *postService.Fetcher
	downloader *postService.Downloader
	delivery   *deliveryService.Service
	scheduler  *scheduleService.Service
	activity   *activityService.Service
	feed       *feedService.Service
	logger     *slog.Logger
}

// New creates a new HTTP server
func New(
	cfg *config.Config,
	users *userService.Service,
	channels *channelService.Service,
	fetcher *postService.Fetcher,
	downloader *postService.Downloader,
	delivery *deliveryService.Service,
	scheduler *scheduleService.Service,
	activity *activityService.Service,
	feed *feedService.Service,
) *Server {
	return &Server{
		cfg:        cfg,
		users:      users,
		channels:   channels,
		fetcher:    fetcher,
		downloader: downloader,
		delivery:   delivery,
		scheduler:  scheduler,
		activity:   activity,
		feed:       feed,
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler builds the full middleware-wrapped handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /feed", s.handleFeed)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	// Authenticated endpoints
	mux.Handle("POST /api/logout", s.authenticated(s.handleLogout))
	mux.Handle("POST /api/analyze", s.authenticated(s.handleAnalyze))
	mux.Handle("POST /api/post", s.authenticated(s.handlePost))
	mux.Handle("POST /api/undo", s.authenticated(s.handleUndo))
	mux.Handle("GET /api/scheduled", s.authenticated(s.handleListScheduled))
	mux.Handle("POST /api/scheduled/{index}/cancel", s.authenticated(s.handleCancelScheduled))
	mux.Handle("GET /api/channels", s.authenticated(s.handleListChannels))
	mux.Handle("POST /api/channels", s.authenticated(s.handleSaveChannel))
	mux.Handle("DELETE /api/channels/{label}", s.authenticated(s.handleDeleteChannel))
	mux.Handle("GET /api/channels/{label}/verify", s.authenticated(s.handleVerifyChannel))
	mux.Handle("GET /api/activity", s.authenticated(s.handleActivity))

	// Use slog-http middleware with recovery
	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)
	return handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("HTTP server starting", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// authenticated resolves the session token and advances the scheduler.
// Every authenticated interaction doubles as a scheduler tick; there is
// no background timer, so this is the only thing that moves due posts.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "Missing session token", http.StatusUnauthorized)
			return
		}

		session, err := s.users.GetSession(token)
		if err != nil {
			http.Error(w, "Invalid session", http.StatusUnauthorized)
			return
		}

		s.scheduler.Tick(r.Context())

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func sessionFrom(r *http.Request) *userDomain.Session {
	session, _ := r.Context().Value(sessionContextKey).(*userDomain.Session)
	return session
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)

	feed, err := s.feed.GenerateFeed(baseURL)
	if err != nil {
		s.logger.Error("Error generating feed", "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>X to Telegram Scheduler</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0; }
        code { background: #e8e8e8; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>X to Telegram Scheduler</h1>
    <div class="info">
        <p>Fetch an X post, edit it, and publish or schedule it to a Telegram channel.</p>
        <p>Log in via <code>POST /api/login</code>, then analyze with <code>POST /api/analyze</code>
        and publish with <code>POST /api/post</code>.</p>
    </div>
    <p><a href="/health">Health Check</a> | <a href="/feed">Activity Feed</a></p>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
