package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/explosion-station/internal/commentary"
	"github.com/robalobadob/explosion-station/internal/httpserver"
	"github.com/robalobadob/explosion-station/internal/rules"
	"github.com/robalobadob/explosion-station/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	gallery, err := rules.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load gallery rules")
	}

	var svc commentary.Service = commentary.Offline{}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		g, err := commentary.NewGemini(context.Background(), key, os.Getenv("GEMINI_MODEL"), os.Getenv("GEMINI_BASE_URL"), gallery.Commentary.IntroManifesto)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build gemini client")
		}
		svc = g
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set; stall owner will use canned lines")
	}

	secret := getEnv("SESSION_SECRET", "dev_secret_change_me")
	if secret == "dev_secret_change_me" && os.Getenv("NODE_ENV") == "production" {
		log.Fatal().Msg("SESSION_SECRET must be set in production")
	}
	ttl := time.Duration(envInt("SESSION_TTL_HOURS", 12)) * time.Hour

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemoryStore()
	go store.RunSweeper(ctx, mem, ttl, time.Minute)

	srv := httpserver.New(mem, httpserver.Config{
		Rules:         gallery,
		Commentary:    svc,
		Secret:        []byte(secret),
		TokenTTL:      ttl,
		CookieName:    getEnv("COOKIE_NAME", "boom_session"),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		SecureCookies: os.Getenv("NODE_ENV") == "production",
	})

	port := getEnv("PORT", "5175")
	hs := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", port).Int("rows", gallery.Rows).Int("cols", gallery.Cols).Msg("starting explosion station")
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
