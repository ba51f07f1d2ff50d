package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/memeshelf/internal/logger"
	"github.com/mesh-intelligence/memeshelf/internal/metrics"
	"github.com/mesh-intelligence/memeshelf/internal/snapshot"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// Stage names a step of a push or pull for progress reporting.
type Stage string

// Sync stages, in order.
const (
	StageEncode   Stage = "encode"
	StageTransfer Stage = "transfer"
	StageDecode   Stage = "decode"
	StageDone     Stage = "done"
)

// Progress receives the stage being entered and an overall percentage.
type Progress func(stage Stage, percent int)

func (p Progress) report(stage Stage, percent int) {
	if p != nil {
		p(stage, percent)
	}
}

// Option configures a Client.
type Option func(*Client)

// WithResource overrides the remote document name.
func WithResource(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.resource = name
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = logger.OrNop(l) }
}

// WithMetrics counts sync operations by outcome.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock sets the time source handed to the snapshot decoder.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client pushes and pulls the snapshot document through a Storage.
type Client struct {
	storage  Storage
	resource string
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewClient wraps storage.
func NewClient(storage Storage, opts ...Option) *Client {
	c := &Client{
		storage:  storage,
		resource: types.DefaultRemoteResource,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New builds the storage selected by cfg and wraps it. The resource name
// comes from cfg unless an option overrides it.
func New(cfg types.RemoteConfig, opts ...Option) (*Client, error) {
	st, err := NewStorage(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithResource(cfg.ResourceName())}, opts...)
	return NewClient(st, opts...), nil
}

// Resource returns the remote document name.
func (c *Client) Resource() string {
	return c.resource
}

// TestConnection reports whether the remote answers.
func (c *Client) TestConnection(ctx context.Context) bool {
	err := c.storage.Ping(ctx)
	c.metrics.Sync("ping", err)
	if err != nil {
		c.log.Warn("remote connection test failed", zap.Error(err))
		return false
	}
	return true
}

// Exists reports whether the remote document is present. Transport
// failures count as absent.
func (c *Client) Exists(ctx context.Context) bool {
	ok, err := c.storage.Exists(ctx, c.resource)
	c.metrics.Sync("exists", err)
	if err != nil {
		c.log.Warn("checking remote document failed", zap.String("resource", c.resource), zap.Error(err))
		return false
	}
	return ok
}

// Push replaces the remote document with snap.
func (c *Client) Push(ctx context.Context, snap types.Snapshot, progress Progress) error {
	progress.report(StageEncode, 0)
	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}

	progress.report(StageTransfer, 30)
	err = c.storage.Put(ctx, c.resource, data, ContentType)
	c.metrics.Sync("push", err)
	if err != nil {
		c.log.Warn("push failed", zap.String("resource", c.resource), zap.Error(err))
		return fmt.Errorf("%w: uploading %s: %w", types.ErrTransport, c.resource, err)
	}

	progress.report(StageDone, 100)
	c.log.Info("snapshot pushed",
		zap.String("resource", c.resource),
		zap.Int("items", len(snap.Items)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Pull downloads and decodes the remote document. A missing document
// yields an error wrapping both types.ErrTransport and
// types.ErrRemoteNotFound; an unusable one yields a *snapshot.SchemaError.
func (c *Client) Pull(ctx context.Context, progress Progress) (*snapshot.Result, error) {
	progress.report(StageTransfer, 0)
	data, err := c.storage.Get(ctx, c.resource)
	c.metrics.Sync("pull", err)
	if err != nil {
		if errors.Is(err, types.ErrRemoteNotFound) {
			return nil, fmt.Errorf("%w: %s has not been pushed yet: %w", types.ErrTransport, c.resource, types.ErrRemoteNotFound)
		}
		c.log.Warn("pull failed", zap.String("resource", c.resource), zap.Error(err))
		return nil, fmt.Errorf("%w: downloading %s: %w", types.ErrTransport, c.resource, err)
	}

	progress.report(StageDecode, 70)
	res, err := snapshot.Deserialize(data, snapshot.WithClock(c.now))
	if err != nil {
		return nil, err
	}

	progress.report(StageDone, 100)
	c.log.Info("snapshot pulled",
		zap.String("resource", c.resource),
		zap.Int("items", len(res.Snapshot.Items)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}
