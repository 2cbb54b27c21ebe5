package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"lanefeed/api"
	"lanefeed/config"
	"lanefeed/handlers"
	"lanefeed/services/exclusions"
	"lanefeed/services/genres"
	"lanefeed/services/lanes"
	"lanefeed/services/metadata"
	"lanefeed/services/recommend"
	"lanefeed/services/tmdb"
	"lanefeed/store"
	"lanefeed/utils"
)

func main() {
	cfg := config.Load()

	blobs, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("[server] open store: %v", err)
	}
	defer blobs.Close()

	resolver := genres.NewResolver()

	provider := tmdb.NewClient(cfg.ProviderAPIKey, cfg.Language, nil, resolver)
	if cfg.ProviderBaseURL != "" {
		provider.SetBaseURL(cfg.ProviderBaseURL)
	}

	cache := metadata.NewCache(cfg.MetadataTTL)
	hydrator := metadata.NewHydrator(cache, provider, metadata.HydratorConfig{
		WindowSize:   cfg.HydrateWindowSize,
		WindowDelay:  cfg.HydrateWindowDelay,
		FetchTimeout: cfg.FetchTimeout,
	})

	recs := recommend.NewService(provider, hydrator, blobs, cfg.SnapshotTTL)
	excl := exclusions.NewService(provider, blobs, cfg.PendingConfirmTTL)
	assembler := lanes.NewAssembler(resolver, cfg.LaneSize)

	browseHandler := handlers.NewBrowseHandler(recs, excl, assembler)
	exclusionsHandler := handlers.NewExclusionsHandler(excl)

	r := utils.NewRouter()
	r.Use(api.RequestIDMiddleware())
	r.Use(api.LoggingMiddleware())

	users := r.PathPrefix("/api/users/{userID}").Subrouter()
	users.HandleFunc("/home", browseHandler.Home).Methods(http.MethodGet)
	users.HandleFunc("/recommendations", browseHandler.List).Methods(http.MethodGet)
	users.HandleFunc("/exclusions/pending/{mediaType}/{id}", exclusionsHandler.MarkPending).Methods(http.MethodPost)
	users.HandleFunc("/exclusions/confirm/{mediaType}/{id}", exclusionsHandler.ConfirmAdded).Methods(http.MethodPost)
	users.HandleFunc("/exclusions/pending", exclusionsHandler.ClearPending).Methods(http.MethodDelete)
	users.HandleFunc("/exclusions/removed/{mediaType}/{id}", exclusionsHandler.MarkRemoved).Methods(http.MethodPost)

	// Forced refreshes bypass the snapshot cache, so they get their own budget.
	refreshLimiter := api.NewIPRateLimiter(rate.Every(12*time.Second), 5)
	users.Handle("/refresh", api.RateLimitHandler(refreshLimiter, http.HandlerFunc(browseHandler.Refresh))).Methods(http.MethodPost)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[server] listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
}
