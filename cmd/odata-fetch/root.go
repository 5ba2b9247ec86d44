package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/odata-client/internal/config"
	"github.com/Sternrassler/odata-client/internal/json"
	"github.com/Sternrassler/odata-client/internal/transport"
	"github.com/Sternrassler/odata-client/pkg/logging"
	"github.com/Sternrassler/odata-client/pkg/metrics"
	"github.com/Sternrassler/odata-client/pkg/odata"
	"github.com/Sternrassler/odata-client/pkg/ratelimit"
)

// app holds what PersistentPreRunE builds for the subcommands.
type app struct {
	v           *viper.Viper
	cfg         *config.Config
	ds          *odata.DataSource
	logger      zerolog.Logger
	maxPages    int
	stats       bool
	metricsAddr string
	closers     []io.Closer
	server      *http.Server
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:   "odata-fetch",
		Short: "Query OData v3 services",
		Long: `odata-fetch reads entities from an OData v3 service and prints them as JSON.

Usage examples:

1. Fetch a single document from the Danish parliament's open data service:

	odata-fetch get Dokument 24

2. Fetch every document of a type, following server-driven paging:

	odata-fetch list Dokument --filter "typeid eq 3" --orderby "id desc" --all

3. Another service, rate limited to 2 requests per second:

	ODATA_HOST=services.odata.org odata-fetch --base-path /V3/Northwind/Northwind.svc --rate 2 list Customers

`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown()
		},
	}

	flags := cmd.PersistentFlags()
	config.RegisterFlags(flags)
	flags.BoolVar(&a.stats, "stats", false, "Log request metrics when done")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")

	cmd.AddCommand(newGetCommand(a), newListCommand(a))
	return cmd
}

func (a *app) setup(ctx context.Context, cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	out := cmd.ErrOrStderr()
	logger, closer := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: out,
		File:   cfg.LogFile,
	})
	a.closers = append(a.closers, closer)
	a.logger = logger.With().Str("component", "odata-fetch").Logger()

	var oauth *transport.OAuthOptions
	if cfg.OAuthTokenURL != "" {
		oauth = &transport.OAuthOptions{
			TokenURL:     cfg.OAuthTokenURL,
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			Scopes:       cfg.OAuthScopes,
		}
	}
	client, err := transport.NewHTTPClient(ctx, transport.Options{
		Timeout:  cfg.Timeout,
		ProxyURL: cfg.ProxyURL,
		OAuth:    oauth,
	})
	if err != nil {
		return fmt.Errorf("create http client: %w", err)
	}

	opts := []odata.Option{
		odata.WithScheme(cfg.Scheme),
		odata.WithUserAgent(cfg.UserAgent),
		odata.WithLogger(logging.NewLogger("odata-client")),
		odata.WithMaxPages(a.maxPages),
		odata.WithRequestCoalescing(),
	}

	limiter, err := a.newLimiter(ctx)
	if err != nil {
		return err
	}
	if limiter != nil {
		opts = append(opts, odata.WithLimiter(limiter))
	}

	ds, err := odata.New(client, cfg.Host, cfg.BasePath, opts...)
	if err != nil {
		return err
	}
	a.ds = ds

	if a.metricsAddr != "" {
		a.serveMetrics()
	}

	a.logger.Debug().
		Str("service", ds.ServiceRoot()).
		Float64("rate", cfg.Rate).
		Bool("shared_limit", cfg.RedisAddr != "").
		Msg("Data source ready")
	return nil
}

// newLimiter returns nil when no rate is configured.
func (a *app) newLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	cfg := a.cfg
	if cfg.Rate <= 0 {
		return nil, nil
	}

	if cfg.RedisAddr == "" {
		bucket, err := ratelimit.NewTokenBucket(ratelimit.Config{Rate: cfg.Rate, Burst: cfg.EffectiveBurst()})
		if err != nil {
			return nil, fmt.Errorf("create rate limiter: %w", err)
		}
		return ratelimit.Instrument(bucket, "local", a.logger), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	a.closers = append(a.closers, rdb)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	perSecond := int(math.Ceil(cfg.Rate))
	shared, err := ratelimit.NewRedisLimiter(rdb, cfg.Host, perSecond, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create shared rate limiter: %w", err)
	}
	return ratelimit.Instrument(shared, "redis", a.logger), nil
}

func (a *app) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.server = &http.Server{Addr: a.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", a.metricsAddr).Msg("Metrics server failed")
		}
	}()
	a.logger.Info().Str("addr", a.metricsAddr).Msg("Serving metrics")
}

func (a *app) teardown() error {
	if a.stats {
		if snap, err := metrics.Snapshot(); err == nil {
			event := a.logger.Info()
			for name, value := range snap {
				event = event.Float64(name, value)
			}
			event.Msg("Request statistics")
		}
	}

	var errs []error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics server: %w", err))
		}
		a.server = nil
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// writeJSON prints v indented to the command's output.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
