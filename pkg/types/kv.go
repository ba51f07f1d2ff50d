package types

import "errors"

// Logical keys of the local persisted document.
const (
	KeyItems           = "memes"
	KeySettings        = "meme-settings"
	KeyCategories      = "meme-categories"
	KeyAuxiliaryConfig = "llm-configs"
)

// KeyValue is the durable local key-value layer the registry and the catalog
// persist into. Values are opaque JSON documents.
type KeyValue interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if nothing is stored.
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	// Returns an error wrapping ErrQuotaExceeded when the store is full.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key succeeds.
	Delete(key string) error
}

// Storage errors.
var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrDetached      = errors.New("store is detached")
	ErrAttached      = errors.New("store is already attached")
)

// Catalog error taxonomy. Mutations never return these for "not found"
// conditions; those are reported as false or zero results.
var (
	// ErrValidation marks malformed input to a mutation.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence marks a local write failure; in-memory state still stands.
	ErrPersistence = errors.New("persistence failed")
	// ErrTransport marks a remote push/pull failure.
	ErrTransport = errors.New("remote transport failed")
	// ErrRemoteNotFound marks a pull before the first push.
	ErrRemoteNotFound = errors.New("remote snapshot not found")
	// ErrSchema marks a document that fails structural requirements.
	ErrSchema = errors.New("invalid snapshot document")
)
