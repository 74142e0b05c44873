package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/mediahub-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediahub-backend/internal/platform/httpx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

// DefaultTopK is how many labels Classify keeps when k <= 0.
const DefaultTopK = 7

var ErrMalformedResponse = errors.New("clip: malformed response")

// Input is one document for Encode. Exactly one of Blob (base64) or Text is set.
type Input struct {
	Blob string `json:"blob,omitempty"`
	Text string `json:"text,omitempty"`
}

type RankedLabel struct {
	Label string
	Score float64
}

// Client talks to a CLIP encoder that embeds images and text into one space.
type Client interface {
	Encode(ctx context.Context, inputs []Input) ([][]float32, error)
	EmbedImage(ctx context.Context, raw []byte) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Rank(ctx context.Context, imageB64 string, labels []string) ([]RankedLabel, error)
	Classify(ctx context.Context, raw []byte, labels []string, k int) ([]string, error)
	Dim() int
}

type client struct {
	log        *logger.Logger
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	dim        int
}

// HTTPError is a non-2xx answer from the encoder.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("clip http status=%d body=%q", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	return newClient(log, cfg, &http.Client{Timeout: cfg.Timeout})
}

func newClient(log *logger.Logger, cfg Config, hc *http.Client) (*client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &client{
		log:        log.With("service", "ClipClient"),
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		http:       hc,
		maxRetries: cfg.MaxRetries,
		dim:        cfg.VectorDim,
	}
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return c, nil
}

func (c *client) Dim() int { return c.dim }

type encodeRequest struct {
	Data []Input `json:"data"`
}

type encodeResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *client) Encode(ctx context.Context, inputs []Input) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	for i, in := range inputs {
		if (in.Blob == "") == (in.Text == "") {
			return nil, fmt.Errorf("clip encode: input %d must set exactly one of blob or text", i)
		}
	}
	var resp encodeResponse
	if err := c.do(ctx, "/encode", encodeRequest{Data: inputs}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: want %d embeddings got %d", ErrMalformedResponse, len(inputs), len(resp.Data))
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != c.dim {
			return nil, fmt.Errorf("%w: embedding %d has dim %d, want %d", ErrMalformedResponse, i, len(d.Embedding), c.dim)
		}
		out[i] = d.Embedding
	}
	return out, nil
}

func (c *client) EmbedImage(ctx context.Context, raw []byte) ([]float32, error) {
	vecs, err := c.Encode(ctx, []Input{{Blob: base64.StdEncoding.EncodeToString(raw)}})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("clip embed text: empty text")
	}
	vecs, err := c.Encode(ctx, []Input{{Text: text}})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type rankMatch struct {
	Text   string `json:"text"`
	Scores map[string]struct {
		Value float64 `json:"value"`
	} `json:"scores,omitempty"`
}

type rankDoc struct {
	Blob    string      `json:"blob"`
	Matches []rankMatch `json:"matches"`
}

type rankBody struct {
	Data []rankDoc `json:"data"`
}

func (c *client) Rank(ctx context.Context, imageB64 string, labels []string) ([]RankedLabel, error) {
	if imageB64 == "" {
		return nil, fmt.Errorf("clip rank: image required")
	}
	if len(labels) == 0 {
		return []RankedLabel{}, nil
	}
	req := rankBody{Data: []rankDoc{{Blob: imageB64, Matches: make([]rankMatch, 0, len(labels))}}}
	for _, l := range labels {
		req.Data[0].Matches = append(req.Data[0].Matches, rankMatch{Text: l})
	}
	var resp rankBody
	if err := c.do(ctx, "/rank", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != 1 {
		return nil, fmt.Errorf("%w: want 1 ranked document got %d", ErrMalformedResponse, len(resp.Data))
	}
	out := make([]RankedLabel, 0, len(resp.Data[0].Matches))
	for _, m := range resp.Data[0].Matches {
		score, ok := m.Scores["clip_score"]
		if !ok || m.Text == "" {
			return nil, fmt.Errorf("%w: match without clip_score", ErrMalformedResponse)
		}
		out = append(out, RankedLabel{Label: m.Text, Score: score.Value})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (c *client) Classify(ctx context.Context, raw []byte, labels []string, k int) ([]string, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	ranked, err := c.Rank(ctx, base64.StdEncoding.EncodeToString(raw), labels)
	if err != nil {
		return nil, err
	}
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Label)
	}
	return out, nil
}

func (c *client) do(ctx context.Context, path string, body any, out any) error {
	ctx = ctxutil.Default(ctx)
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("clip encode request: %w", err)
	}

	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		resp, raw, err := c.doOnce(ctx, path, payload)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("%w: %v", ErrMalformedResponse, uErr)
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 5*time.Second))
		c.log.Warn("CLIP request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, path string, payload []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > 512 {
			raw = raw[:512]
		}
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
