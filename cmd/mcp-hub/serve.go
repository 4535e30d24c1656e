// ABOUTME: Composition root for the serve command: wires the store, the
// ABOUTME: integration registry, the dispatcher and every HTTP surface.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Vangardo/mcp-hub-sub000/internal/admin"
	"github.com/Vangardo/mcp-hub-sub000/internal/auth"
	"github.com/Vangardo/mcp-hub-sub000/internal/config"
	"github.com/Vangardo/mcp-hub-sub000/internal/connect"
	"github.com/Vangardo/mcp-hub-sub000/internal/crypto"
	"github.com/Vangardo/mcp-hub-sub000/internal/gateway"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations/binance"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations/figma"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations/memory"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations/miro"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations/slack"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations/teamwork"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations/telegram"
	"github.com/Vangardo/mcp-hub-sub000/internal/mcp"
	"github.com/Vangardo/mcp-hub-sub000/internal/oauthserver"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// patTTL is the lifetime of personal access tokens issued via /auth/tokens.
const patTTL = 365 * 24 * time.Hour

// runtimeCreds adapts the settings-aware credential source to the static
// lookup the integrations expect. Integrations resolve credentials per call,
// so admin settings changes take effect without a restart.
type runtimeCreds struct {
	src *config.CredentialSource
}

func (r runtimeCreds) OAuthClient(provider string) (string, string) {
	return r.src.OAuthClient(context.Background(), provider)
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Base URL: %s\n", cfg.Server.BaseURL)
	fmt.Println()

	logger.Info("starting mcp-hub",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"base_url", cfg.Server.BaseURL,
	)

	cipher, err := crypto.NewCipher(cfg.Auth.EncryptionKey)
	if err != nil {
		return fmt.Errorf("creating cipher: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path, cipher)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	if err := ensureAdmin(ctx, st, cfg.Admin, logger); err != nil {
		return fmt.Errorf("bootstrapping admin: %w", err)
	}

	creds := config.NewCredentialSource(cfg, st)
	baseURL := creds.BaseURL(ctx)

	registry, err := buildRegistry(ctx, cfg, st, creds)
	if err != nil {
		return fmt.Errorf("building integration registry: %w", err)
	}

	jwt := auth.NewJWTManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL)
	sink := gateway.NewAuditSink(st)
	resolver := gateway.NewResolver(st, registry, cfg.Auth.TokenRefreshMargin)
	dispatcher := gateway.NewDispatcher(registry, resolver, sink)
	dispatcher.SetCustomServerSource(st)

	authed := auth.Middleware(st, jwt)

	authHandlers := auth.NewHandlers(st, jwt, cfg.Auth.RefreshTokenTTL, patTTL)
	connectHandlers := connect.NewHandlers(st, registry, sink, baseURL)
	adminHandlers := admin.NewHandlers(st)
	mcpServer := mcp.NewServer(registry, dispatcher, st, sink)
	oauthSrv := oauthserver.NewServer(st, jwt, baseURL)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	oauthSrv.Routes(r)
	connectHandlers.Routes(r, authed)
	r.Mount("/auth", authHandlers.Routes(authed))
	r.Group(func(r chi.Router) {
		r.Use(authed)
		mcpServer.Routes(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(authed)
		r.Use(auth.RequireAdmin())
		r.Mount("/admin", adminHandlers.Routes())
	})

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildRegistry registers every built-in integration. OAuth integrations stay
// registered even when unconfigured so they show up in discovery with
// is_configured=false.
func buildRegistry(ctx context.Context, cfg *config.Config, st *store.SQLiteStore, creds *config.CredentialSource) (*integrations.Registry, error) {
	registry := integrations.NewRegistry()
	rc := runtimeCreds{src: creds}

	all := []integrations.Integration{
		slack.New(rc),
		teamwork.New(rc),
		miro.New(rc),
		figma.New(rc),
		binance.New(),
		memory.New(st),
		telegramIntegration(ctx, cfg, creds),
	}
	for _, integration := range all {
		if err := registry.Register(integration); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func telegramIntegration(ctx context.Context, cfg *config.Config, creds *config.CredentialSource) *telegram.Integration {
	apiID, apiHash := creds.TelegramAPI(ctx)
	bridgeURL := cfg.Providers.Telegram.BridgeURL
	if apiID == "" || apiHash == "" || bridgeURL == "" {
		return telegram.New(nil)
	}
	return telegram.New(telegram.NewBridgeClient(bridgeURL, apiID, apiHash))
}

// ensureAdmin creates the bootstrap admin account on first start. An existing
// user with the configured email is left untouched.
func ensureAdmin(ctx context.Context, st *store.SQLiteStore, cfg config.AdminConfig, logger *slog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	_, err := st.GetUserByEmail(ctx, cfg.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	err = st.CreateUser(ctx, &store.User{
		Email:        cfg.Email,
		PasswordHash: hash,
		Role:         store.RoleAdmin,
		IsActive:     true,
		Status:       store.UserStatusApproved,
	})
	if err != nil {
		return err
	}
	logger.Info("created bootstrap admin", "email", cfg.Email)
	return nil
}
