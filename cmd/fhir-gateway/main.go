package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fhir-gateway/gateway/internal/config"
	"github.com/fhir-gateway/gateway/internal/fhirpath"
	"github.com/fhir-gateway/gateway/internal/gateway"
	"github.com/fhir-gateway/gateway/internal/httpapi"
	"github.com/fhir-gateway/gateway/internal/instrumentation"
	"github.com/fhir-gateway/gateway/internal/lifecycle"
	"github.com/fhir-gateway/gateway/internal/model"
	"github.com/fhir-gateway/gateway/internal/platform/middleware"
	"github.com/fhir-gateway/gateway/internal/router"
	"github.com/fhir-gateway/gateway/internal/searchengine"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fhir-gateway",
		Short: "Multi-tenant FHIR R4 document gateway",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(circuitCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the FHIR gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// circuitCmd gives operators a CLI escape hatch for the manual circuit
// reset spec §4.J names, mirroring the teacher's tenant/migrate operator
// command groups rather than leaving reset reachable only over HTTP.
func circuitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "circuit",
		Short: "Reset the database circuit breaker",
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Force the circuit breaker closed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			gw, err := gateway.New(gateway.Options{
				ConnectionString: cfg.CouchbaseConnStr,
				Username:         cfg.CouchbaseUsername,
				Password:         cfg.CouchbasePassword,
				CircuitReset:     cfg.CircuitResetTimeout(),
			}, logger)
			if err != nil {
				return fmt.Errorf("connect to cluster: %w", err)
			}
			gw.ResetCircuit()
			fmt.Println("circuit breaker reset to closed")
			return nil
		},
	}
	cmd.AddCommand(resetCmd)
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	registry := prometheus.NewRegistry()
	gw, err := gateway.New(gateway.Options{
		ConnectionString: cfg.CouchbaseConnStr,
		Username:         cfg.CouchbaseUsername,
		Password:         cfg.CouchbasePassword,
		CircuitReset:     cfg.CircuitResetTimeout(),
		Registerer:       registry,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	logger.Info().Msg("connected to database")

	routingTable := router.Default()
	schema := model.DefaultSchema()
	parser := fhirpath.New(schema)
	lc := lifecycle.New(gw, routingTable, 3)

	engineTemplate := searchengine.New(
		routingTable, schema, parser,
		nil, nil, nil, // Search/Fetch/Cache are rebound per request by httpapi.Handlers.engineFor
		cfg.SearchFTSLimit, cfg.PaginationDefaultPageSize, cfg.SearchFTSLimit,
	)

	handlers := httpapi.New(gw, lc, routingTable, engineTemplate, cfg.DefaultTenant)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpapi.ErrorHandler

	e.Use(middleware.Recovery(logger))
	e.Use(instrumentation.Middleware(logger))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "If-Match", "X-Request-ID"},
	}))

	e.GET("/healthz", gw.LivenessHandler)
	e.GET("/readyz/:tenant", gw.ReadinessHandler(cfg.DefaultTenant))
	e.GET("/health/:tenant", gw.DetailedHandler(cfg.DefaultTenant))
	e.POST("/health/circuit/reset", gw.CircuitResetHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(e)

	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("fhir-gateway listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
