package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zoq/relay/internal/auth"
	"github.com/zoq/relay/internal/config"
	"github.com/zoq/relay/internal/handlers"
	"github.com/zoq/relay/internal/logging"
	"github.com/zoq/relay/internal/messaging"
	"github.com/zoq/relay/internal/middleware"
	"github.com/zoq/relay/internal/store"
	"github.com/zoq/relay/internal/store/mongostore"
	"github.com/zoq/relay/internal/store/sqlstore"
	"github.com/zoq/relay/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML/JSON config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // best-effort flush

	secret, err := cfg.Secret()
	if err != nil {
		logger.Fatal("auth secret unavailable", zap.Error(err))
	}
	verifier := auth.NewHMACVerifier(secret)

	st, err := openStore(cfg.Storage)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}

	metrics := ws.NewMetrics(prometheus.DefaultRegisterer)
	registry := ws.NewRegistry(verifier, metrics)
	router := ws.NewRouter(registry, metrics, logger)
	relay := ws.NewRelay(router, st, logger)
	messages := messaging.NewService(st, st, router, logger)
	hub := ws.NewHub(registry, relay, messages, logger)

	messageHandler := &handlers.MessageHandler{Service: messages}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger))

	r.HandleFunc("/ws", hub.ServeWS)
	r.Handle("/metrics", promhttp.Handler())

	api := r.PathPrefix("/messages").Subrouter()
	api.Use(middleware.Auth(verifier))
	api.HandleFunc("/conversations", messageHandler.GetConversations).Methods("GET")
	api.HandleFunc("/{user_id}", messageHandler.GetHistory).Methods("GET")

	logger.Info("starting relay",
		zap.String("addr", cfg.ListenAddress),
		zap.String("storage", cfg.Storage.Backend))
	if err := http.ListenAndServe(cfg.ListenAddress, r); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func openStore(cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return sqlstore.New("sqlite3", cfg.DSN)
	case "postgres":
		return sqlstore.New("postgres", cfg.DSN)
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return mongostore.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
