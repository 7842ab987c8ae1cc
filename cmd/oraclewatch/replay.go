package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/oraclewatch/oraclewatch/internal/config"
	"github.com/oraclewatch/oraclewatch/internal/manip"
	"github.com/oraclewatch/oraclewatch/internal/telemetry"
)

type replayFlags struct {
	input       string
	configPath  string
	metricsAddr string
	feedsPerSec float64
}

func newReplayCmd() *cobra.Command {
	flags := &replayFlags{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded feed snapshots through the detection engine",
		Long: `Reads a JSON array of feed snapshots, feeds them to the engine in order,
and writes each emitted detection to stdout as a JSON line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.input, "input", "", "path to JSON snapshot file (required)")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "listen address for Prometheus /metrics (disabled when empty)")
	cmd.Flags().Float64Var(&flags.feedsPerSec, "rate", 0, "max feeds analyzed per second (0 = unlimited)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runReplay(ctx context.Context, flags *replayFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	applyLogLevel(cfg.Log.Level)

	opts := []manip.Option{}
	if flags.metricsAddr != "" {
		registry := prometheus.NewRegistry()
		opts = append(opts, manip.WithRecorder(telemetry.NewMetrics(registry)))
		startMetricsServer(flags.metricsAddr, registry)
	}

	detector, err := manip.NewDetector(&cfg.Engine, opts...)
	if err != nil {
		return fmt.Errorf("build detector: %w", err)
	}

	snaps, err := loadSnapshots(flags.input)
	if err != nil {
		return err
	}
	log.Info().Int("feeds", len(snaps)).Str("input", flags.input).Msg("replay started")

	limiter := rate.NewLimiter(rate.Inf, 1)
	if flags.feedsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(flags.feedsPerSec), 1)
	}

	encoder := json.NewEncoder(os.Stdout)
	emitted := 0
	for _, snap := range snaps {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		detection, err := detector.AnalyzePriceFeed(ctx, snap)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", snap.FeedKey(), err)
		}
		if detection == nil {
			continue
		}
		emitted++
		if err := encoder.Encode(detection); err != nil {
			return fmt.Errorf("encode detection: %w", err)
		}
	}

	report := detector.Metrics(manip.TimeRange{})
	log.Info().
		Int("emitted", emitted).
		Int("total", report.Total).
		Float64("avg_confidence", report.AverageConfidence).
		Msg("replay finished")
	return nil
}

func loadSnapshots(path string) ([]manip.FeedSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshots %s: %w", path, err)
	}
	var snaps []manip.FeedSnapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return nil, fmt.Errorf("parse snapshots %s: %w", path, err)
	}
	return snaps, nil
}

func startMetricsServer(addr string, registry *prometheus.Registry) {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
