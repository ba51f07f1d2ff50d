package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/memeshelf/internal/assets"
	"github.com/mesh-intelligence/memeshelf/internal/catalog"
	"github.com/mesh-intelligence/memeshelf/internal/logger"
	"github.com/mesh-intelligence/memeshelf/internal/metrics"
	"github.com/mesh-intelligence/memeshelf/internal/paths"
	"github.com/mesh-intelligence/memeshelf/internal/registry"
	"github.com/mesh-intelligence/memeshelf/internal/remote"
	"github.com/mesh-intelligence/memeshelf/internal/sqlite"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// app is the wired catalog for one command invocation.
type app struct {
	cfg     types.Config
	log     *zap.Logger
	backend *sqlite.Backend
	reg     *registry.Registry
	store   *catalog.Store
	metrics *metrics.Metrics
	gather  prometheus.Gatherer
	errOut  io.Writer
}

// openApp resolves directories, loads config, attaches the local database
// and loads the registry and store. The caller must defer a.close().
func openApp(cmd *cobra.Command) (*app, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}
	cfg.DataDir, err = paths.ResolveDataDir(flags.dataDir, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	level := cfg.Log.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	log, err := logger.New(level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrValidation, err)
	}

	promReg := prometheus.NewRegistry()
	m, err := metrics.New(promReg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}

	reg := registry.New(backend, registry.WithLogger(log), registry.WithMetrics(m))
	if err := reg.Load(); err != nil {
		log.Warn("category load", zap.Error(err))
	}
	store := catalog.New(backend, reg,
		catalog.WithLogger(log),
		catalog.WithMetrics(m),
		catalog.WithLocale(cfg.Locale),
		catalog.WithSearchThreshold(cfg.SearchThreshold),
	)
	warnings, err := store.Load()
	if err != nil {
		backend.Detach()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	for _, w := range warnings {
		log.Warn("catalog load", zap.String("warning", w.String()))
	}

	return &app{
		cfg:     cfg,
		log:     log,
		backend: backend,
		reg:     reg,
		store:   store,
		metrics: m,
		gather:  promReg,
		errOut:  cmd.ErrOrStderr(),
	}, nil
}

func (a *app) close() error {
	a.reg.Close()
	if flags.metrics {
		printMetrics(a.errOut, a.gather)
	}
	_ = a.log.Sync()
	return a.backend.Detach()
}

// remoteClient builds the sync client from the remote config section.
func (a *app) remoteClient() (*remote.Client, error) {
	if !a.cfg.Remote.Enabled() {
		return nil, fmt.Errorf("%w: no remote configured (set remote.url)", types.ErrValidation)
	}
	return remote.New(a.cfg.Remote, remote.WithLogger(a.log), remote.WithMetrics(a.metrics))
}

// assetHost returns the configured asset host, or nil when none is set.
func (a *app) assetHost(ctx context.Context) (assets.Host, error) {
	if a.cfg.Assets.Endpoint == "" {
		return nil, nil
	}
	h, err := assets.NewMinIO(a.cfg.Assets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrValidation, err)
	}
	if err := h.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// printMetrics writes every non-zero counter as name{labels} value.
func printMetrics(w io.Writer, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		fmt.Fprintf(w, "gather metrics: %v\n", err)
		return
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

// isNotFound reports whether err means a missing item or remote document.
func isNotFound(err error) bool {
	return errors.Is(err, errNotFound) || errors.Is(err, types.ErrRemoteNotFound)
}
