package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/mediahub-backend/internal/platform/blob"
	"github.com/yungbote/mediahub-backend/internal/platform/gcp"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/platform/s3"
)

// Constructors are variables so tests can stub the network-backed ones.
var (
	gcsConfigFromEnv = gcp.BucketConfigFromEnv
	s3ConfigFromEnv  = s3.ConfigFromEnv

	newGCSStore = func(ctx context.Context, log *logger.Logger, cfg gcp.BucketConfig) (blob.Store, func() error, error) {
		b, err := gcp.NewBucket(ctx, log, cfg)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	}
	newS3Store = func(ctx context.Context, log *logger.Logger, cfg s3.Config) (blob.Store, func() error, error) {
		st, err := s3.NewStore(ctx, log, cfg)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	}
)

type BlobBootstrapErrorCode string

const (
	BlobBootstrapErrorInvalidBackend BlobBootstrapErrorCode = "invalid_backend"
	BlobBootstrapErrorInvalidConfig  BlobBootstrapErrorCode = "invalid_config"
	BlobBootstrapErrorConnectFailed  BlobBootstrapErrorCode = "connect_failed"
)

type BlobBootstrapError struct {
	Code    BlobBootstrapErrorCode
	Backend BlobBackend
	Cause   error
}

func (e *BlobBootstrapError) Error() string {
	if e == nil {
		return "blob store bootstrap failed"
	}
	return fmt.Sprintf("blob store bootstrap failed (code=%s backend=%q): %v", e.Code, e.Backend, e.Cause)
}

func (e *BlobBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// blobStore is the selected backend plus its release hook (nil when none).
type blobStore struct {
	blob.Store
	close func() error
}

func (b blobStore) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func resolveBlobStore(ctx context.Context, log *logger.Logger, cfg Config) (blobStore, error) {
	backend := cfg.BlobBackend
	if backend == "" {
		backend = BlobBackendLocal
	}
	log.Info("Selecting blob backend", "backend", backend)

	fail := func(code BlobBootstrapErrorCode, cause error) (blobStore, error) {
		err := &BlobBootstrapError{Code: code, Backend: backend, Cause: cause}
		log.Error("Blob backend bootstrap failed", "backend", backend, "error_code", code, "error", cause)
		return blobStore{}, err
	}

	switch backend {
	case BlobBackendLocal:
		local, err := blob.NewLocal(log, cfg.StorageDir, cfg.PublicBaseURL)
		if err != nil {
			return fail(BlobBootstrapErrorInvalidConfig, err)
		}
		return blobStore{Store: local}, nil

	case BlobBackendGCS:
		bcfg, err := gcsConfigFromEnv()
		if err != nil {
			return fail(BlobBootstrapErrorInvalidConfig, err)
		}
		st, closer, err := newGCSStore(ctx, log, bcfg)
		if err != nil {
			return fail(classifyBlobConnectError(err), err)
		}
		return blobStore{Store: st, close: closer}, nil

	case BlobBackendS3:
		scfg, err := s3ConfigFromEnv()
		if err != nil {
			return fail(BlobBootstrapErrorInvalidConfig, err)
		}
		st, closer, err := newS3Store(ctx, log, scfg)
		if err != nil {
			return fail(classifyBlobConnectError(err), err)
		}
		return blobStore{Store: st, close: closer}, nil
	}
	return fail(BlobBootstrapErrorInvalidBackend, fmt.Errorf("unsupported BLOB_BACKEND %q", backend))
}

// classifyBlobConnectError keeps config problems the client only notices at
// connect time apart from plain connectivity failures.
func classifyBlobConnectError(err error) BlobBootstrapErrorCode {
	var cfgErr *gcp.ConfigError
	if errors.As(err, &cfgErr) {
		return BlobBootstrapErrorInvalidConfig
	}
	return BlobBootstrapErrorConnectFailed
}
