// Package ingest turns image files into catalog items: the bytes go to the
// asset host, the vision analyzer supplies text, and the finished item is
// added to the store.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/memeshelf/internal/assets"
	"github.com/mesh-intelligence/memeshelf/internal/catalog"
	"github.com/mesh-intelligence/memeshelf/internal/logger"
	"github.com/mesh-intelligence/memeshelf/internal/registry"
	"github.com/mesh-intelligence/memeshelf/internal/vision"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// Stage names a step of ingesting one file.
type Stage string

const (
	StageUploading Stage = "uploading"
	StageAnalyzing Stage = "analyzing"
	StageSaving    Stage = "saving"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "error"
)

// Progress reports the stage and percentage of the file at index.
type Progress func(index int, stage Stage, percent int)

func (p Progress) report(index int, stage Stage, percent int) {
	if p != nil {
		p(index, stage, percent)
	}
}

// Source is one file to ingest.
type Source struct {
	Name        string // file name kept on the item
	Path        string // local path, used as the asset location when no host is set
	Data        []byte
	ContentType string // detected from Data when empty
}

// Result is the outcome for one Source.
type Result struct {
	Item types.Item
	Err  error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAssetHost uploads image bytes to host.
func WithAssetHost(h assets.Host) Option {
	return func(p *Pipeline) { p.host = h }
}

// WithAnalyzer fills extracted text and descriptions from a.
func WithAnalyzer(a vision.Analyzer) Option {
	return func(p *Pipeline) { p.analyzer = a }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = logger.OrNop(l) }
}

// WithClock sets the upload time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline ingests files into a store. Without an asset host the local
// path is recorded as the asset URL; without an analyzer the text fields
// stay empty.
type Pipeline struct {
	store    *catalog.Store
	reg      *registry.Registry
	host     assets.Host
	analyzer vision.Analyzer
	log      *zap.Logger
	now      func() time.Time
}

// New creates a pipeline adding to store and checking categories in reg.
func New(store *catalog.Store, reg *registry.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{store: store, reg: reg, log: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestAll ingests srcs one after another. overall, when set, is called
// after each file with the number finished. A failed file does not stop
// the rest.
func (p *Pipeline) IngestAll(ctx context.Context, srcs []Source, category string, progress Progress, overall func(done, total int)) []Result {
	results := make([]Result, len(srcs))
	for i, src := range srcs {
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		results[i].Item, results[i].Err = p.ingest(ctx, i, src, category, progress)
		if overall != nil {
			overall(i+1, len(srcs))
		}
	}
	return results
}

// Ingest ingests one file into category.
func (p *Pipeline) Ingest(ctx context.Context, src Source, category string, progress Progress) (types.Item, error) {
	return p.ingest(ctx, 0, src, category, progress)
}

func (p *Pipeline) ingest(ctx context.Context, index int, src Source, category string, progress Progress) (types.Item, error) {
	item, err := p.process(ctx, index, src, category, progress)
	if err != nil {
		progress.report(index, StageFailed, 0)
		p.log.Warn("ingest failed", zap.String("file", src.Name), zap.Error(err))
		return item, err
	}
	progress.report(index, StageCompleted, 100)
	return item, nil
}

func (p *Pipeline) process(ctx context.Context, index int, src Source, category string, progress Progress) (types.Item, error) {
	if category == "" {
		category = types.DefaultCategoryID
	}
	if !p.reg.Contains(category) {
		return types.Item{}, fmt.Errorf("%w: unknown category %q", types.ErrValidation, category)
	}
	if len(src.Data) == 0 {
		return types.Item{}, fmt.Errorf("%w: %s is empty", types.ErrValidation, src.Name)
	}
	if src.Name == "" {
		src.Name = filepath.Base(src.Path)
	}
	if src.ContentType == "" {
		src.ContentType = http.DetectContentType(src.Data)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return types.Item{}, fmt.Errorf("generating id: %w", err)
	}
	item := types.Item{
		ID:         id.String(),
		Filename:   src.Name,
		CategoryID: category,
		CreatedAt:  p.now(),
		ByteSize:   int64(len(src.Data)),
	}
	item.Width, item.Height, item.Format = dimensions(src.Data, src.ContentType)

	progress.report(index, StageUploading, 10)
	if p.host != nil {
		asset, err := p.host.Upload(ctx, src.Name, src.Data, src.ContentType)
		if err != nil {
			return types.Item{}, fmt.Errorf("uploading %s: %w", src.Name, err)
		}
		item.AssetURL = asset.URL
		item.ExternalAssetID = asset.ExternalID
	} else {
		item.AssetURL = localURL(src)
	}
	progress.report(index, StageUploading, 40)

	if p.analyzer != nil {
		progress.report(index, StageAnalyzing, 50)
		a, err := p.analyzer.Analyze(ctx, src.Data, src.ContentType)
		if err != nil {
			p.discard(item)
			return types.Item{}, fmt.Errorf("analyzing %s: %w", src.Name, err)
		}
		item.ExtractedText = a.ExtractedText
		item.Description = a.Description
		progress.report(index, StageAnalyzing, 90)
	}

	progress.report(index, StageSaving, 95)
	if err := p.store.Add(item); err != nil {
		// The item is in memory even when the write failed.
		if errors.Is(err, types.ErrPersistence) {
			return item, err
		}
		p.discard(item)
		return types.Item{}, err
	}
	p.log.Info("item ingested", zap.String("id", item.ID), zap.String("file", item.Filename))
	return item, nil
}

// discard removes an uploaded asset whose item will not be saved.
func (p *Pipeline) discard(item types.Item) {
	if p.host == nil || item.ExternalAssetID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.host.Delete(ctx, item.ExternalAssetID); err != nil {
		p.log.Warn("removing orphaned asset failed", zap.String("asset", item.ExternalAssetID), zap.Error(err))
	}
}

func localURL(src Source) string {
	if src.Path == "" {
		return "file://" + src.Name
	}
	abs, err := filepath.Abs(src.Path)
	if err != nil {
		abs = src.Path
	}
	return "file://" + filepath.ToSlash(abs)
}

// dimensions reads the image header. Formats without a registered decoder
// keep zero dimensions and take their format from the content type.
func dimensions(data []byte, contentType string) (w, h int, format string) {
	if cfg, name, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return cfg.Width, cfg.Height, name
	}
	if _, sub, ok := strings.Cut(contentType, "/"); ok {
		sub, _, _ = strings.Cut(sub, ";")
		return 0, 0, sub
	}
	return 0, 0, ""
}
