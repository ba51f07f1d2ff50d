// Package remote synchronizes a catalog snapshot with a single document on
// a remote store. The policy is last writer wins: Push replaces the remote
// document and Pull returns it as found, with no merging.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// ContentType is sent with every pushed document.
const ContentType = "application/json; charset=utf-8"

// Storage is the transport port. Implementations address objects by name
// relative to their configured root. Get reports a missing object with an
// error wrapping types.ErrRemoteNotFound.
type Storage interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// NewStorage builds the transport selected by cfg.Kind.
func NewStorage(cfg types.RemoteConfig) (Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrValidation, err)
	}
	switch cfg.Kind {
	case types.RemoteS3:
		return NewS3(cfg)
	default:
		return NewWebDAV(cfg)
	}
}

func timeout(cfg types.RemoteConfig) time.Duration {
	if cfg.TimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.TimeoutMS) * time.Millisecond
}

// await runs fn and returns its error, or ctx's error if ctx ends first.
// fn keeps running in the background in that case; it must not touch
// caller-owned state after returning.
func await(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
