package gcp

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/mediahub-backend/internal/platform/envutil"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

type BucketConfig struct {
	Mode          ObjectStorageMode
	Bucket        string
	EmulatorHost  string
	CDNDomain     string
	PublicBaseURL string
}

type ConfigError struct {
	Field string
	Value string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("invalid %s=%q", e.Field, e.Value)
}

// BucketConfigFromEnv reads MEDIA_GCS_* settings. Setting STORAGE_EMULATOR_HOST
// without GCS_MODE selects the emulator.
func BucketConfigFromEnv() (BucketConfig, error) {
	cfg := BucketConfig{
		Bucket:        envutil.String("MEDIA_GCS_BUCKET_NAME", ""),
		EmulatorHost:  envutil.String("STORAGE_EMULATOR_HOST", ""),
		CDNDomain:     envutil.String("MEDIA_CDN_DOMAIN", ""),
		PublicBaseURL: strings.TrimRight(envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""), "/"),
	}
	switch mode := ObjectStorageMode(strings.ToLower(envutil.String("GCS_MODE", ""))); mode {
	case "":
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
		}
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
		cfg.Mode = mode
	default:
		return cfg, &ConfigError{Field: "GCS_MODE", Value: string(mode)}
	}
	return cfg, cfg.Validate()
}

func (c BucketConfig) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "MEDIA_GCS_BUCKET_NAME"}
	}
	if c.Mode != ObjectStorageModeGCSEmulator {
		return nil
	}
	if c.EmulatorHost == "" {
		return &ConfigError{Field: "STORAGE_EMULATOR_HOST"}
	}
	u, err := url.Parse(c.EmulatorHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "STORAGE_EMULATOR_HOST", Value: c.EmulatorHost}
	}
	return nil
}

func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
