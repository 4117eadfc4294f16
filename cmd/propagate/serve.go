package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/propagate"
	"github.com/vango-dev/propagate/internal/config"
	"github.com/vango-dev/propagate/pkg/binding"
	"github.com/vango-dev/propagate/pkg/bridge"
	"github.com/vango-dev/propagate/pkg/collections"
	"github.com/vango-dev/propagate/pkg/property"
	"github.com/vango-dev/propagate/pkg/proxy"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		host       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream demo properties over WebSocket",
		Long: `Start an HTTP server that streams a set of demo properties.

Routes:
  GET  /ws/counter       counter incremented every tick
  GET  /ws/latest        proxy over the counter (or a frozen value)
  GET  /ws/mirror        string mirror bound to the counter
  PUT  /values/mirror    write the mirror; non-numeric input is rolled back
  POST /latest/{peer}    point the proxy at "counter" or "frozen"
  GET  /tags             list tags, PUT /tags/{tag} adds one
  GET  /healthz          liveness
  GET  /metrics          Prometheus metrics (if enabled)

Configuration is read from propagate.json (--config, or the closest
one above the working directory). Without one, defaults are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to propagate.json")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Server port")
	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "Server host")

	return cmd
}

// loadConfig reads path, or the closest propagate.json when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		warn("No %s found, using defaults", config.ConfigFileName)
		return config.New(), nil
	}
	return cfg, nil
}

// runtimeConfig translates the file configuration into engine settings.
func runtimeConfig(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) propagate.Config {
	policy, _ := propagate.ParseFaultPolicy(cfg.Engine.FaultPolicy)
	rc := propagate.Config{
		Logger:      logger,
		FaultPolicy: policy,
		Debug:       cfg.Engine.Debug,
	}
	if cfg.Metrics.Enabled {
		rc.Metrics = &propagate.MetricsConfig{
			Namespace: cfg.Metrics.Namespace,
			Registry:  reg,
		}
	}
	if cfg.Tracing.Enabled {
		rc.Tracing = &propagate.TracingConfig{TracerName: cfg.Tracing.TracerName}
	}
	return rc
}

func contentionPolicy(name string) collections.ContentionPolicy {
	if name == config.ContentionFailFast {
		return collections.FailFast
	}
	return collections.Block
}

func runServe(cfg *config.Config) error {
	level := slog.LevelInfo
	if cfg.Engine.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	reg := prometheus.NewRegistry()
	rt := propagate.Setup(runtimeConfig(cfg, logger, reg))
	defer rt.Close()

	d, err := newDemo(cfg)
	if err != nil {
		return err
	}
	defer d.close()

	server := &http.Server{
		Addr:    cfg.Address(),
		Handler: newRouter(cfg, d, logger, reg),
	}

	// Handle signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go d.tick(ctx, cfg.TickInterval())

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	printBanner()
	success("Serving %s on %s", nameOr(cfg.Name, "demo"), cfg.URL())
	info("Streams: /ws/counter /ws/latest /ws/mirror")
	if cfg.Metrics.Enabled {
		info("Metrics: %s", cfg.Metrics.Path)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		errorMsg("Shutdown: %v", err)
		return err
	}
	success("Stopped")
	return nil
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// =============================================================================
// Demo properties
// =============================================================================

// demo holds the properties served by "serve".
type demo struct {
	counter *propagate.Property[int]
	frozen  *propagate.Property[int]
	latest  *proxy.Value[int]
	mirror  *propagate.Property[string]
	tags    *propagate.SetProperty[string]
	link    *binding.Link
}

func newDemo(cfg *config.Config) (*demo, error) {
	d := &demo{
		counter: property.New(0),
		frozen:  property.New(-1),
		mirror:  property.New("0"),
		tags:    property.NewSetProperty(collections.NewSet[string](collections.WithPolicy(contentionPolicy(cfg.Engine.Contention)))),
	}
	d.latest = proxy.New[int](d.counter)

	link, err := binding.Bind(d.counter, d.mirror, binding.IntString())
	if err != nil {
		return nil, err
	}
	d.link = link
	return d, nil
}

// tick increments the counter every interval until ctx is done.
func (d *demo) tick(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = d.counter.Update(func(n int) int { return n + 1 })
		}
	}
}

func (d *demo) close() {
	d.link.Unbind()
	d.latest.SetPeer(nil)
}

// =============================================================================
// Routes
// =============================================================================

func newRouter(cfg *config.Config, d *demo, logger *slog.Logger, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	opts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithBufferSize(cfg.Stream.BufferSize),
		bridge.WithWriteTimeout(cfg.WriteTimeout()),
		bridge.WithCheckOrigin(func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cfg.OriginAllowed(origin)
		}),
	}
	bridge.Mount(r, "counter", bridge.Stream[int](d.counter, opts...))
	bridge.Mount(r, "latest", bridge.Stream[int](d.latest, opts...))
	bridge.Mount(r, "mirror", bridge.Stream[string](d.mirror, opts...))

	r.Put("/values/mirror", d.putMirror)
	r.Post("/latest/{peer}", d.setLatestPeer)
	r.Get("/tags", d.listTags)
	r.Put("/tags/{tag}", d.addTag)

	return r
}

func (d *demo) putMirror(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	want := string(body)
	if err := d.mirror.Set(want); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	// A rejected write is rolled back by the binding.
	if d.mirror.Value() != want {
		msg := "rolled back"
		if err := d.link.Err(); err != nil {
			msg = err.Error()
		}
		http.Error(w, msg, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]any{"mirror": d.mirror.Value(), "counter": d.counter.Value()})
}

func (d *demo) setLatestPeer(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "peer") {
	case "counter":
		d.latest.SetPeer(d.counter)
	case "frozen":
		d.latest.SetPeer(d.frozen)
	default:
		http.Error(w, "unknown peer", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]int{"latest": d.latest.Value()})
}

func (d *demo) listTags(w http.ResponseWriter, r *http.Request) {
	tags := d.tags.Value().Values()
	if tags == nil {
		tags = []string{}
	}
	slices.Sort(tags)
	writeJSON(w, tags)
}

func (d *demo) addTag(w http.ResponseWriter, r *http.Request) {
	if err := d.tags.Value().Add(chi.URLParam(r, "tag")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, collections.ErrContention) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
