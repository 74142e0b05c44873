package clip

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/mediahub-backend/internal/platform/envutil"
)

type Config struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	// RPS limits outbound calls; zero disables the limiter.
	RPS       float64
	VectorDim int
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		URL:        envutil.String("CLIP_URL", ""),
		Timeout:    envutil.Seconds("CLIP_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries: envutil.Int("CLIP_MAX_RETRIES", 2),
		RPS:        envutil.Float("CLIP_RPS", 0),
		VectorDim:  envutil.Int("CLIP_VECTOR_DIM", 512),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("CLIP_URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid CLIP_URL=%q; expected absolute URL like http://clip:51000", c.URL)
	}
	if c.VectorDim <= 0 {
		return fmt.Errorf("CLIP_VECTOR_DIM must be a positive integer")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("CLIP_MAX_RETRIES must be >= 0")
	}
	return nil
}
