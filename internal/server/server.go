package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linkup-social/apiserver/config"
	"github.com/linkup-social/apiserver/internal/db"
	"github.com/linkup-social/apiserver/internal/handlers"
	"github.com/linkup-social/apiserver/internal/mq"
	"github.com/linkup-social/apiserver/internal/services"
	"github.com/linkup-social/apiserver/internal/storage"
	"github.com/linkup-social/apiserver/internal/store"
	"github.com/linkup-social/apiserver/internal/token"
)

// Server wraps the HTTP server, router, and shared resources.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New constructs a Server with its full dependency graph.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTTL,
		cfg.JWT.RefreshTTL,
	)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	avatarStorage, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if avatarStorage != nil {
		if err := avatarStorage.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	}

	broker, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	log := slog.Default()

	userRepo := store.NewUserRepository(dbConn)
	friendshipRepo := store.NewFriendshipRepository(dbConn)

	sessionService := services.NewSessionService(userRepo, issuer)
	userService := services.NewUserService(userRepo, avatarStorage)

	var events services.EventPublisher
	if broker != nil {
		events = broker
	}
	friendshipService := services.NewFriendshipService(friendshipRepo, userRepo, events, log)

	userHandler := handlers.NewUserHandler(sessionService, userService, issuer, cfg.Cookie)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userHandler)
	})
	router.Route("/friendships", func(r chi.Router) {
		handlers.FriendshipRouter(r, friendshipService, userHandler.RequireAuth)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
