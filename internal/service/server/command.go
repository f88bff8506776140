package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/archive"
	"github.com/oshokin/catpoint/internal/classifier"
	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/metrics"
	"github.com/oshokin/catpoint/internal/mqtt"
	"github.com/oshokin/catpoint/internal/repository/history"
	repository "github.com/oshokin/catpoint/internal/repository/status"
	"github.com/oshokin/catpoint/internal/security"
	"github.com/oshokin/catpoint/internal/version"
)

// Options controls the security-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StateFile overrides the path of the JSON state file.
	StateFile string
	// LogLevel overrides the configured log level.
	LogLevel string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// shutdownTimeout bounds the graceful stop of HTTP and gRPC servers.
const shutdownTimeout = 10 * time.Second

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "security-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.StateFile != "" {
		settings.StateFile = opts.StateFile
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	if err = logger.Configure(settings.LogLevel); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	logger.InfoKV(ctx, "Starting security server", "version", version.Full(), "store", settings.Store)

	return run(ctx, settings, listenAddress)
}

// run wires the components described by settings and serves until ctx is done.
func run(ctx context.Context, settings *config.Config, listenAddress string) error {
	var cleanups []func()

	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	store, closeStore, err := openStore(ctx, settings)
	if err != nil {
		return err
	}

	cleanups = append(cleanups, closeStore)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svcOptions := serviceOptions{
		store:          store,
		classifier:     classifier.NewFake(settings.ClassifierSeed),
		initialSensors: settings.InitialSensors(),
		metrics:        metrics.New(registry),
		archiveTimeout: settings.Timeout,
	}

	var mqttClient *mqtt.Client

	if settings.MQTT.Broker != "" {
		mqttClient, err = mqtt.NewClient(ctx, settings.MQTT, settings.Timeout)
		if err != nil {
			return fmt.Errorf("create mqtt client: %w", err)
		}

		if err = mqttClient.Connect(); err != nil {
			return err
		}

		cleanups = append(cleanups, mqttClient.Close)
		svcOptions.listeners = append(svcOptions.listeners, mqtt.NewPublisher(settings.MQTT.BaseTopic, mqttClient))
	}

	if settings.History.PostgresURL != "" {
		recorder, closeRecorder, historyErr := openHistory(ctx, settings)
		if historyErr != nil {
			return historyErr
		}

		cleanups = append(cleanups, closeRecorder)
		svcOptions.listeners = append(svcOptions.listeners, recorder)
	}

	if settings.Archive.Bucket != "" {
		svcOptions.archive, err = archive.NewS3(ctx, settings.Archive)
		if err != nil {
			return fmt.Errorf("create image archive: %w", err)
		}
	}

	svc, err := newService(ctx, svcOptions)
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	cleanups = append(cleanups, svc.Close)

	if mqttClient != nil {
		if err = mqtt.NewBridge(settings.MQTT.BaseTopic, svc).Start(ctx, mqttClient); err != nil {
			return fmt.Errorf("start mqtt bridge: %w", err)
		}
	}

	if settings.MetricsAddress != "" {
		stopMetrics, metricsErr := serveMetrics(ctx, settings.MetricsAddress, registry)
		if metricsErr != nil {
			return metricsErr
		}

		cleanups = append(cleanups, stopMetrics)
	}

	return serveGRPC(ctx, listenAddress, svc)
}

// openStore returns the configured snapshot store and a function closing it.
// The memory store is represented by a nil Store.
func openStore(ctx context.Context, settings *config.Config) (repository.Store, func(), error) {
	switch settings.Store {
	case config.StoreRedis:
		store, err := repository.NewRedisStore(settings.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create redis store: %w", err)
		}

		if err = store.Ping(ctx); err != nil {
			_ = store.Close()

			return nil, nil, err
		}

		return store, func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.WarnKV(ctx, "Failed to close redis store", "error", closeErr)
			}
		}, nil
	case config.StoreMemory:
		logger.Warn(ctx, "State is kept in memory and lost on restart")

		return nil, func() {}, nil
	default:
		logger.InfoKV(ctx, "Persisting state to file", "state_file", settings.StateFile)

		return repository.NewFileStore(settings.StateFile), func() {}, nil
	}
}

// openHistory connects to Postgres and starts the history recorder.
func openHistory(ctx context.Context, settings *config.Config) (security.StatusListener, func(), error) {
	db, err := history.OpenPostgres(ctx, settings.History.PostgresURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}

	recorder := history.NewRecorder(ctx, db, settings.History.Buffer, settings.Timeout)

	return recorder, func() {
		recorder.Close()

		if dropped := recorder.Dropped(); dropped > 0 {
			logger.WarnKV(ctx, "History events dropped", "count", dropped)
		}

		if closeErr := db.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close history database", "error", closeErr)
		}
	}, nil
}

// serveMetrics exposes Prometheus metrics over HTTP in the background.
func serveMetrics(ctx context.Context, address string, gatherer prometheus.Gatherer) (func(), error) {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if serveErr := httpServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "Metrics server failed", "error", serveErr)
		}
	}()

	logger.InfoKV(ctx, "Metrics server listening", "metrics_address", address)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.WarnKV(ctx, "Metrics server shutdown failed", "error", shutdownErr)
		}
	}, nil
}

// serveGRPC runs the security gRPC service until ctx is canceled.
func serveGRPC(ctx context.Context, listenAddress string, svc api.Service) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(api.LoggingInterceptor))
	api.RegisterSecurityServiceServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Security server listening", "listen_address", listenAddress)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
