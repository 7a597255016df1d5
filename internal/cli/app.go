// Package cli is the command-line shell of the NFSe client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/client"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/config"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/navigation"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/output"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/session"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/health"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/logger"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/metrics"
)

// Health probe names.
const (
	probeStorage = "session_storage"
	probeAPI     = "api"
)

// App holds everything a command needs. It is built once per process by
// the root command and never shared through globals.
type App struct {
	Version string

	In  io.Reader
	Out io.Writer
	Err io.Writer

	viper      *viper.Viper
	configPath string
	debug      bool

	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Metrics
	tracer  *tracesdk.TracerProvider
	backend session.Backend
	store   *session.Store
	session *session.Manager
	api     *client.Client
	printer *output.Printer
	nav     *navigation.Navigator
	health  *health.CompositeChecker

	metricsServer *http.Server
	// the configured backend failed to open
	storageFallback bool

	stdin *bufio.Reader
	// replaced in tests
	readPassword func(prompt string) (string, error)
	now          func() time.Time
}

// NewApp creates an App writing to the given streams.
func NewApp(version string, in io.Reader, out, errOut io.Writer) *App {
	a := &App{
		Version: version,
		In:      in,
		Out:     out,
		Err:     errOut,
		viper:   viper.New(),
		log:     logger.NewNop(),
		now:     time.Now,
	}
	a.readPassword = a.promptPassword
	a.printer = output.NewPrinter(out, output.FormatTable, false)
	return a
}

// loadConfig reads the configuration: defaults, file, environment, flags.
func (a *App) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		var err error
		path, err = config.GetConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyViper(a.viper); err != nil {
		return nil, err
	}
	if a.debug {
		cfg.Logger.Level = "debug"
	}
	return cfg, nil
}

// setup loads the configuration and, unless withSession is false, wires the
// session, the API client and the metrics server.
func (a *App) setup(ctx context.Context, withSession bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.printer = output.NewPrinter(a.Out, output.ParseFormat(cfg.Output.Format), output.DetectColors(a.Out))

	if !withSession {
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuração inválida (%s): %w", cfg.Path, err)
	}

	log, err := logger.NewLoggerTo(a.Err, cfg.Environment, cfg.Logger.Level, "nfse-cli")
	if err != nil {
		return err
	}
	a.log = log

	a.tracer = metrics.InitializeOpenTelemetry("nfse-cli", a.Version, metrics.NewLogExporter(log))
	a.metrics = metrics.NewMetricsWithTracer("nfse", a.tracer)

	backend, err := session.OpenBackend(ctx, cfg, log)
	if err != nil {
		// the session can still live in memory for this process
		log.Warn("session storage unavailable, using memory",
			logger.String("driver", cfg.Storage.Driver),
			logger.Error(err))
		a.metrics.SessionEvent(metrics.EventDegraded)
		backend = session.NewMemoryBackend()
		a.storageFallback = true
	}
	a.backend = backend
	a.store = session.NewStore(backend, log)

	api, err := client.New(cfg.API.BaseURL,
		client.WithTimeout(cfg.Timeout()),
		client.WithLogger(log),
		client.WithMetrics(a.metrics),
		client.WithVersion(a.Version),
	)
	if err != nil {
		return err
	}
	a.api = api
	a.session = session.NewManager(a.store, api, log, a.metrics)
	api.BindSession(a.session)

	a.session.Restore(ctx)
	a.nav = navigation.NewNavigator(a.announceRedirect)

	a.health = health.NewCompositeChecker(a.Version, 5*time.Second)
	a.health.Register(probeStorage, backend.Ping)
	a.health.Register(probeAPI, api.Ping)

	if cfg.Metrics.Addr != "" {
		a.startMetricsServer(cfg.Metrics.Addr)
	}
	return nil
}

// Close releases what setup acquired.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.log.Warn("metrics server shutdown failed", logger.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.log.Warn("tracer shutdown failed", logger.Error(err))
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.log.Warn("failed to close session storage", logger.Error(err))
		}
	}
	_ = a.log.Sync()
}

func (a *App) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.GetHandler())
	mux.Handle("/health", health.Handler(a.health))

	a.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.log.Debug("metrics server listening", logger.String("addr", addr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server failed", logger.Error(err))
		}
	}()
}
