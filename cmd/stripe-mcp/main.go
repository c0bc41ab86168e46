// Command stripe-mcp runs the Stripe MCP server over stdio or HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"

	"github.com/acuteworks/stripe-mcp/internal/jwtauth"
	"github.com/acuteworks/stripe-mcp/internal/logctx"
	"github.com/acuteworks/stripe-mcp/mcp"
	"github.com/acuteworks/stripe-mcp/mcpserver"
	"github.com/acuteworks/stripe-mcp/sessions"
	"github.com/acuteworks/stripe-mcp/sessions/memoryhost"
	"github.com/acuteworks/stripe-mcp/sessions/redishost"
	"github.com/acuteworks/stripe-mcp/stdio"
	"github.com/acuteworks/stripe-mcp/streaminghttp"
	"github.com/acuteworks/stripe-mcp/stripeapi"
	"github.com/acuteworks/stripe-mcp/stripetools"
)

var version = "dev"

const serverInstructions = "Tools for managing Stripe products, prices, coupons, webhook endpoints, " +
	"billing meters, and customer portal configurations. Use get_connection_guide for setup help and " +
	"list_resources for read-only queries across resource kinds."

// Config is the process environment. Flags override individual fields.
type Config struct {
	// StripeSecretKey authenticates every Stripe API call. ENV: STRIPE_SECRET_KEY
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	// StripePublishableKey is surfaced by get_connection_guide. ENV: STRIPE_PUBLISHABLE_KEY
	StripePublishableKey string `env:"STRIPE_PUBLISHABLE_KEY"`
	// StripeWebhookSecret marks webhook verification as configured. ENV: STRIPE_WEBHOOK_SECRET
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	// Transport selects stdio or http. ENV: MCP_TRANSPORT
	Transport string `env:"MCP_TRANSPORT,default=stdio"`
	// Port for the HTTP transport. ENV: PORT
	Port int `env:"PORT,default=8080"`
	// RedisAddr switches the session host from memory to Redis. ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR"`

	// Optional bearer auth for the HTTP transport. All three must be set.
	AuthIssuer   string `env:"MCP_AUTH_ISSUER"`
	AuthAudience string `env:"MCP_AUTH_AUDIENCE"`
	AuthJWKSURI  string `env:"MCP_AUTH_JWKS_URI"`
}

func main() {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:     "stripe-mcp",
		Short:   "MCP server exposing Stripe payment-resource operations as tools",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), &cfg)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&cfg.Transport, "transport", cfg.Transport, "transport mode: stdio or http")
	root.Flags().IntVar(&cfg.Port, "port", cfg.Port, "listen port for the http transport")
	root.Flags().StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address for the session host (empty = in-memory)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	if cfg.StripeSecretKey == "" {
		return errors.New("STRIPE_SECRET_KEY is required")
	}

	// stdio keeps stdout clean for the protocol; logs go to stderr either way.
	log := slog.New(logctx.Handler{Handler: slog.NewJSONHandler(os.Stderr, nil)})

	client := stripeapi.NewClient(stripeapi.NewBackend(cfg.StripeSecretKey))
	tools := stripetools.New(client, stripetools.Config{
		PublishableKey: cfg.StripePublishableKey,
		WebhookSecret:  cfg.StripeWebhookSecret,
	}, stripetools.WithLogger(log))

	srv := mcpserver.New(
		mcp.ImplementationInfo{Name: "stripe-mcp", Version: version},
		tools,
		mcpserver.WithLogger(log),
		mcpserver.WithInstructions(serverInstructions),
	)

	switch cfg.Transport {
	case "stdio":
		log.Info("transport.start", slog.String("mode", "stdio"))
		err := stdio.NewHandler(srv, stdio.WithLogger(log)).Serve(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	case "http":
		return runHTTP(ctx, cfg, srv, log)

	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", cfg.Transport)
	}
}

func runHTTP(ctx context.Context, cfg *Config, srv *mcpserver.Server, log *slog.Logger) error {
	var host sessions.Host
	if cfg.RedisAddr != "" {
		rh, err := redishost.New(redishost.Config{RedisAddr: cfg.RedisAddr})
		if err != nil {
			return fmt.Errorf("redis session host: %w", err)
		}
		defer rh.Close()
		host = rh
		log.Info("sessions.host", slog.String("kind", "redis"), slog.String("addr", cfg.RedisAddr))
	} else {
		host = memoryhost.New()
		log.Info("sessions.host", slog.String("kind", "memory"))
	}
	mgr := sessions.NewManager(host, sessions.WithLogger(log))

	opts := []streaminghttp.Option{streaminghttp.WithLogger(log)}
	if cfg.AuthIssuer != "" || cfg.AuthJWKSURI != "" {
		if cfg.AuthIssuer == "" || cfg.AuthAudience == "" || cfg.AuthJWKSURI == "" {
			return errors.New("MCP_AUTH_ISSUER, MCP_AUTH_AUDIENCE, and MCP_AUTH_JWKS_URI must all be set to enable auth")
		}
		authn, err := jwtauth.NewStatic(ctx, &jwtauth.Config{
			Issuer:            cfg.AuthIssuer,
			ExpectedAudiences: []string{cfg.AuthAudience},
		}, cfg.AuthJWKSURI)
		if err != nil {
			return fmt.Errorf("auth init: %w", err)
		}
		opts = append(opts, streaminghttp.WithAuthenticator(authn), streaminghttp.WithRealm("stripe-mcp"))
		log.Info("auth.enabled", slog.String("issuer", cfg.AuthIssuer))
	}

	handler := streaminghttp.New(srv, mgr, opts...)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("transport.start", slog.String("mode", "http"), slog.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("transport.stop")
		return nil
	}
}
