package remote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/studio-b12/gowebdav"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// WebDAV stores the snapshot on a WebDAV server.
type WebDAV struct {
	client *gowebdav.Client

	putMu   sync.Mutex // serializes Put so putType belongs to one upload
	putType string
}

var _ Storage = (*WebDAV)(nil)

// NewWebDAV creates a WebDAV storage rooted at cfg.URL.
func NewWebDAV(cfg types.RemoteConfig) (*WebDAV, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: %w", types.ErrValidation, types.ErrRemoteURLMissing)
	}
	c := gowebdav.NewClient(strings.TrimRight(cfg.URL, "/")+"/", cfg.Username, cfg.Password)
	c.SetTimeout(timeout(cfg))
	w := &WebDAV{client: c}
	// Only uploads carry the document type; PROPFIND and friends set their own.
	c.SetInterceptor(func(method string, rq *http.Request) {
		if method == http.MethodPut && w.putType != "" {
			rq.Header.Set("Content-Type", w.putType)
		}
	})
	return w, nil
}

// Ping lists the root collection.
func (w *WebDAV) Ping(ctx context.Context) error {
	return await(ctx, func() error {
		_, err := w.client.ReadDir("/")
		return err
	})
}

// Get reads the named file.
func (w *WebDAV) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := await(ctx, func() error {
		b, err := w.client.Read(name)
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if isNotFound(err) {
		return nil, fmt.Errorf("%s: %w", name, types.ErrRemoteNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put writes the named file, replacing any previous version.
func (w *WebDAV) Put(ctx context.Context, name string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = ContentType
	}
	return await(ctx, func() error {
		w.putMu.Lock()
		defer w.putMu.Unlock()
		w.putType = contentType
		return w.client.Write(name, data, 0o644)
	})
}

// Exists stats the named file.
func (w *WebDAV) Exists(ctx context.Context, name string) (bool, error) {
	err := await(ctx, func() error {
		_, err := w.client.Stat(name)
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func isNotFound(err error) bool {
	return err != nil && (gowebdav.IsErrNotFound(err) || errors.Is(err, fs.ErrNotExist))
}
