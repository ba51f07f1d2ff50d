package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "negative quota rejected",
			config:  Config{Backend: BackendSQLite, QuotaBytes: -1},
			wantErr: ErrQuotaInvalid,
		},
		{
			name:    "threshold above one rejected",
			config:  Config{Backend: BackendSQLite, SearchThreshold: 1.5},
			wantErr: ErrThresholdInvalid,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRemoteConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		remote  RemoteConfig
		wantErr error
	}{
		{"webdav needs url", RemoteConfig{Kind: RemoteWebDAV}, ErrRemoteURLMissing},
		{"webdav ok", RemoteConfig{Kind: RemoteWebDAV, URL: "https://dav.example.com"}, nil},
		{"kind defaults to webdav", RemoteConfig{URL: "https://dav.example.com"}, nil},
		{"s3 needs bucket", RemoteConfig{Kind: RemoteS3, URL: "localhost:9000"}, ErrRemoteBucketMissing},
		{"unknown kind", RemoteConfig{Kind: "ftp", URL: "ftp://x"}, ErrRemoteKindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.remote.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRemoteConfigResourceName(t *testing.T) {
	if got := (RemoteConfig{}).ResourceName(); got != DefaultRemoteResource {
		t.Fatalf("expected default resource, got %q", got)
	}
	if got := (RemoteConfig{Resource: "x.json"}).ResourceName(); got != "x.json" {
		t.Fatalf("expected x.json, got %q", got)
	}
}

func TestRemoteConfigEnabled(t *testing.T) {
	if (RemoteConfig{Kind: RemoteWebDAV}).Enabled() {
		t.Fatal("a remote without a url must not be enabled")
	}
	if !(RemoteConfig{URL: "https://dav.example.com"}).Enabled() {
		t.Fatal("a remote with a url must be enabled")
	}
}
