package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reactorsched/internal/config"
	"reactorsched/internal/router"
	"reactorsched/internal/server"
	"reactorsched/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "reactord",
	Short: "Runs a level-stratified, multi-worker reactor scheduler behind an HTTP/1.0 diagnostics surface.",
	Run:   run,
}

func init() {
	flags := rootCmd.Flags()
	d := config.Defaults()
	flags.Int("workers", d.NumberOfWorkers, "number of reaction worker goroutines")
	flags.Uint32("max-level", d.MaxReactionLevel, "highest precedence level the RQA allocates")
	flags.Int("initial-queue-size", d.InitialQueueSize, "initial capacity of each level's ready queue")
	flags.Duration("tick-interval", d.TickInterval, "interval between demo program ticks")
	flags.Int("tick-limit", d.TickLimit, "number of demo ticks before the horizon reaches its stop tag (0 = unbounded)")
	flags.String("http10-addr", d.HTTP10Addr, "listen address for the HTTP/1.0 diagnostics server")
	flags.String("metrics-addr", d.MetricsAddr, "listen address for the Prometheus exporter")
	flags.String("log-level", d.LogLevel, "log level: debug|info|warn|error")

	_ = viper.BindPFlags(flags)
	config.BindEnv(viper.GetViper())
}

func run(_ *cobra.Command, _ []string) {
	cfg := config.FromViper(viper.GetViper(), config.Defaults())

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	router.SetLogger(logger)

	reactor := router.InitReactor(cfg)
	exporter := telemetry.New(reactor.Scheduler)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: exporter.Handler()}
	go func() {
		logger.Info("starting metrics exporter", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics exporter stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down")
		_ = metricsSrv.Close()
		router.Close()
		os.Exit(0)
	}()

	logger.Info("HTTP/1.0 server starting", "addr", cfg.HTTP10Addr)
	if err := server.ListenAndServe(cfg.HTTP10Addr); err != nil {
		logger.Error("listen failed", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
