package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/bus"
	"github.com/leonardotrapani/hyprlingo/internal/config"
	"github.com/leonardotrapani/hyprlingo/internal/llm"
	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/leonardotrapani/hyprlingo/internal/metrics"
	"github.com/leonardotrapani/hyprlingo/internal/pipeline"
	"github.com/leonardotrapani/hyprlingo/internal/polish"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
	"github.com/leonardotrapani/hyprlingo/internal/server"
	"github.com/leonardotrapani/hyprlingo/internal/session"
	"github.com/leonardotrapani/hyprlingo/internal/store"
	"github.com/leonardotrapani/hyprlingo/internal/transcriber"
	"github.com/leonardotrapani/hyprlingo/internal/translation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// statusKeys is the field order of the control socket STATUS reply
var statusKeys = []string{"address", "connections", "recording", "background", "uptime"}

// Daemon owns the process lifecycle: HTTP server, control socket and
// config watcher run together and stop together.
type Daemon struct {
	cfg     *config.Manager
	root    *zap.SugaredLogger // unnamed, handed to components
	log     *zap.SugaredLogger
	version string
	started time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	addr        string
	server      *server.Server
	registry    *session.Registry
	coordinator *polish.Coordinator
}

func New(cfg *config.Manager, log *zap.SugaredLogger, version string) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	log = logging.OrNop(log)
	return &Daemon{
		cfg:     cfg,
		root:    log,
		log:     log.Named("daemon"),
		version: version,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Stop asks a running daemon to shut down.
func (d *Daemon) Stop() {
	d.cancel()
}

// Addr returns the HTTP listen address once Run has bound it.
func (d *Daemon) Addr() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.addr
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ctl, err := bus.Listen()
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer ctl.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	ctx, stop := signal.NotifyContext(d.ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg := d.cfg.GetConfig()

	st, err := store.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	d.log.Infow("store opened", "path", cfg.Storage.Path)

	if cfg.Storage.ResetLocksOnStartup {
		n, err := st.ResetPolishingLocks(ctx)
		if err != nil {
			d.log.Warnw("failed to reset polishing locks", "error", err)
		} else if n > 0 {
			d.log.Infow("cleared stale polishing locks", "sessions", n)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	svc, err := d.build(cfg, st, reg, m)
	if err != nil {
		return err
	}
	srv, coordinator := svc.server, svc.coordinator

	ln, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Address, err)
	}

	d.mu.Lock()
	d.addr = ln.Addr().String()
	d.server = srv
	d.registry = svc.registry
	d.coordinator = coordinator
	d.mu.Unlock()

	d.cfg.OnChange(d.onConfigChange)
	if err := d.cfg.StartWatching(ctx); err != nil {
		d.log.Warnw("config hot reload disabled", "error", err)
	}
	defer d.cfg.Stop()

	d.started = time.Now()
	d.log.Infow("daemon started", "address", d.Addr(), "version", d.version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ln)
	})
	g.Go(func() error {
		return bus.Serve(gctx, ctl, d.handleCommand, d.root)
	})
	g.Go(func() error {
		<-gctx.Done()
		d.log.Infow("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		coordinator.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	d.log.Infow("daemon stopped")
	return nil
}

type services struct {
	server      *server.Server
	registry    *session.Registry
	coordinator *polish.Coordinator
}

// build wires the session stack against the store.
func (d *Daemon) build(cfg *config.Config, st *store.SQLite, reg *prometheus.Registry, m *metrics.Metrics) (services, error) {
	instant := translation.NewDeepLClient(
		cfg.ResolveAPIKey(provider.ProviderDeepL),
		cfg.BaseURL(provider.ProviderDeepL),
		cfg.Translation.Timeout,
	)

	var polisher llm.Adapter
	if cfg.IsPolishingEnabled() {
		lc := cfg.ToLLMConfig()
		lc.Timeout = cfg.Polishing.Timeout
		lc.Logger = d.root
		adapter, err := llm.NewAdapter(lc)
		if err != nil {
			return services{}, fmt.Errorf("polishing: %w", err)
		}
		polisher = adapter
		d.log.Infow("polishing enabled", "provider", lc.Provider, "model", lc.Model)
	}

	topts := cfg.ToTranslationOptions()
	topts.Logger = d.root
	topts.Metrics = m
	dispatcher := translation.NewDispatcher(instant, polisher, topts)

	popts := cfg.ToPolishOptions()
	popts.Logger = d.root
	popts.Metrics = m
	coordinator := polish.NewCoordinator(st, dispatcher, popts)

	wired := polishersFor(dispatcher, coordinator)

	sessionDeps := session.Deps{
		Store:      st,
		Translator: dispatcher,
		Polisher:   wired.live,
		Adapters:   d.streamingAdapters(),
		Logger:     d.root,
		Metrics:    m,
	}

	uploads := pipeline.New(pipeline.Deps{
		Store:        st,
		Translator:   dispatcher,
		Polisher:     wired.upload,
		Transcribers: d.batchAdapters(),
		Logger:       d.root,
		Metrics:      m,
	})

	registry := session.NewRegistry(d.root)

	srv := server.New(server.Options{
		Address:         cfg.Server.Address,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		MaxUploadBytes:  cfg.Server.MaxUploadMB << 20,
		WriteTimeout:    cfg.Server.WriteTimeout,
		PingInterval:    cfg.Server.PingInterval,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, server.Deps{
		Store:    st,
		Sessions: sessionDeps,
		Defaults: func() session.Config { return d.cfg.GetConfig().ToSessionConfig() },
		Registry: registry,
		Uploads:  uploads,
		Polisher: wired.api,
		Gatherer: reg,
		Logger:   d.root,
		Metrics:  m,
	})
	return services{server: srv, registry: registry, coordinator: coordinator}, nil
}

// polishers holds the coordinator as each consumer sees it. All are nil
// when no LLM is configured, so consumers report polishing as disabled
// instead of taking the session lock for a run that can only fail.
type polishers struct {
	live   session.Polisher
	upload pipeline.Polisher
	api    server.Polisher
}

func polishersFor(dispatcher *translation.Dispatcher, coordinator *polish.Coordinator) polishers {
	if !dispatcher.CanPolish() {
		return polishers{}
	}
	return polishers{live: coordinator, upload: coordinator, api: coordinator}
}

// streamingAdapters builds Deepgram live adapters from the current config,
// so reloaded keys and transcription settings apply to new connections.
func (d *Daemon) streamingAdapters() session.AdapterBuilder {
	return func(sc session.Config) transcriber.AdapterFactory {
		cfg := d.cfg.GetConfig()
		endpoint := deepgramEndpoint(cfg, true)
		key := cfg.ResolveAPIKey(provider.ProviderDeepgram)
		opts := cfg.ToDeepgramOptions(sc)
		return func() transcriber.StreamingAdapter {
			return transcriber.NewDeepgramAdapter(endpoint, key, opts, d.root)
		}
	}
}

func (d *Daemon) batchAdapters() pipeline.TranscriberBuilder {
	return func(sc session.Config) transcriber.BatchAdapter {
		cfg := d.cfg.GetConfig()
		opts := cfg.ToDeepgramOptions(sc)
		return transcriber.NewDeepgramBatchAdapter(
			deepgramEndpoint(cfg, false),
			cfg.ResolveAPIKey(provider.ProviderDeepgram),
			opts.Model,
			opts.Language,
			opts.Keywords,
		)
	}
}

// deepgramEndpoint returns the model's endpoint, or the configured base URL
// override with the model's path. Streaming overrides get a ws scheme.
func deepgramEndpoint(cfg *config.Config, streaming bool) *provider.EndpointConfig {
	var def *provider.EndpointConfig
	if m, err := provider.GetModel(provider.ProviderDeepgram, cfg.Transcription.Model); err == nil {
		def = m.Endpoint
		if streaming && m.StreamingEndpoint != nil {
			def = m.StreamingEndpoint
		}
	}
	if def == nil {
		def = &provider.EndpointConfig{BaseURL: "https://api.deepgram.com", Path: "/v1/listen"}
		if streaming {
			def = &provider.EndpointConfig{BaseURL: "wss://api.deepgram.com", Path: "/v1/listen"}
		}
	}

	base := strings.TrimRight(cfg.BaseURL(provider.ProviderDeepgram), "/")
	if base == "" {
		return def
	}
	if streaming {
		switch {
		case strings.HasPrefix(base, "https://"):
			base = "wss://" + strings.TrimPrefix(base, "https://")
		case strings.HasPrefix(base, "http://"):
			base = "ws://" + strings.TrimPrefix(base, "http://")
		}
	} else {
		switch {
		case strings.HasPrefix(base, "wss://"):
			base = "https://" + strings.TrimPrefix(base, "wss://")
		case strings.HasPrefix(base, "ws://"):
			base = "http://" + strings.TrimPrefix(base, "ws://")
		}
	}
	return &provider.EndpointConfig{BaseURL: base, Path: def.Path}
}

// onConfigChange reports a reload. Session defaults and transcription
// settings are read per connection; translation and polishing providers
// are fixed until restart.
func (d *Daemon) onConfigChange(cfg *config.Config) {
	d.log.Infow("config reloaded", "mode", cfg.Session.Mode, "model", cfg.Transcription.Model)
}

func (d *Daemon) status() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	fields := map[string]string{
		"address":     d.addr,
		"connections": "0",
		"recording":   "0",
		"background":  "0",
		"uptime":      time.Since(d.started).Truncate(time.Second).String(),
	}
	if d.server != nil {
		fields["connections"] = strconv.Itoa(d.server.ClientCount())
	}
	if d.registry != nil {
		fields["recording"] = strconv.Itoa(len(d.registry.SessionIDs()))
	}
	if d.coordinator != nil {
		fields["background"] = strconv.Itoa(d.coordinator.BackgroundCount())
	}
	return fields
}

func (d *Daemon) handleCommand(cmd byte) string {
	switch cmd {
	case bus.CmdStatus:
		return bus.FormatStatus(statusKeys, d.status())
	case bus.CmdVersion:
		return fmt.Sprintf("STATUS proto=%s version=%s pid=%d", bus.ProtoVer, d.version, os.Getpid())
	case bus.CmdStop:
		d.log.Infow("stop requested over control socket")
		d.cancel()
		return "OK quitting"
	default:
		d.log.Warnw("unknown control command", "command", string(cmd))
		return fmt.Sprintf("ERR unknown=%q", cmd)
	}
}
