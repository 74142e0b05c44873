package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/mediahub-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type Field string

const (
	FieldImage Field = "image"
	FieldText  Field = "text"
)

func ParseField(s string) (Field, bool) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case FieldImage:
		return FieldImage, true
	case FieldText:
		return FieldText, true
	default:
		return "", false
	}
}

// IdenticalThreshold is the cosine distance below which a hit counts as the same content.
const IdenticalThreshold = 0.01

const (
	payloadMediaIDKey = "mid"
	maxErrorBodyBytes = 1024
)

var pointIDNamespaceUUID = uuid.MustParse("6f2c1b0e-54a3-4d8e-9c61-2f7de3a0b5a1")

type Hit struct {
	MediaID  string
	Distance float64
}

type SearchResult struct {
	Identical []string `json:"identical,omitempty"`
	Similar   []string `json:"similar"`
}

type EmbeddingPair struct {
	Image []float32
	Text  []float32
}

// MediaIndex stores one image and one text vector per media item.
type MediaIndex interface {
	EnsureCollection(ctx context.Context) error
	Insert(ctx context.Context, mediaID string, image, text []float32) error
	Search(ctx context.Context, vector []float32, field Field, limit int) (SearchResult, error)
	Hits(ctx context.Context, vector []float32, field Field, limit int) ([]Hit, error)
	GetByID(ctx context.Context, mediaID string) (EmbeddingPair, error)
}

type mediaIndex struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type storedPoint struct {
	ID      json.RawMessage      `json:"id"`
	Payload map[string]any       `json:"payload"`
	Vector  map[string][]float32 `json:"vector"`
}

func NewMediaIndex(log *logger.Logger, cfg Config) (MediaIndex, error) {
	return newMediaIndex(log, cfg, &http.Client{Timeout: cfg.Timeout})
}

func newMediaIndex(log *logger.Logger, cfg Config, hc *http.Client) (*mediaIndex, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	if cfg.SearchEF <= 0 {
		cfg.SearchEF = DefaultSearchEF
	}
	s := &mediaIndex{
		log:     log.With("service", "QdrantMediaIndex"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    hc,
	}
	log.Info(
		"Qdrant media index selected",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
		"hnsw_ef", cfg.SearchEF,
	)
	return s, nil
}

// EnsureCollection creates the collection with both named vectors, or checks
// the dimension of an existing one.
func (s *mediaIndex) EnsureCollection(ctx context.Context) error {
	const op = "ensure_collection"
	var info struct {
		Config struct {
			Params struct {
				Vectors map[string]struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &info)
	var oe *OperationError
	switch {
	case err == nil:
		for _, field := range []Field{FieldImage, FieldText} {
			v, ok := info.Config.Params.Vectors[string(field)]
			if !ok {
				return opErr(op, OperationErrorValidation, fmt.Sprintf("collection %q has no %q vector", s.cfg.Collection, field), nil)
			}
			if v.Size != s.cfg.VectorDim {
				return opErr(op, OperationErrorValidation, fmt.Sprintf(
					"collection %q vector %q size mismatch: expected=%d actual=%d",
					s.cfg.Collection, field, s.cfg.VectorDim, v.Size,
				), nil)
			}
		}
		return nil
	case errors.As(err, &oe) && oe.StatusCode == http.StatusNotFound:
	default:
		return err
	}

	params := map[string]any{"size": s.cfg.VectorDim, "distance": "Cosine"}
	req := map[string]any{
		"vectors": map[string]any{
			string(FieldImage): params,
			string(FieldText):  params,
		},
	}
	if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath(""), req, nil); err != nil {
		return err
	}
	s.log.Info("Qdrant collection created", "collection", s.cfg.Collection, "vector_dim", s.cfg.VectorDim)
	return nil
}

func (s *mediaIndex) Insert(ctx context.Context, mediaID string, image, text []float32) error {
	const op = "insert"
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return opErr(op, OperationErrorValidation, "media id is required", nil)
	}
	if err := s.checkDim(op, FieldImage, image); err != nil {
		return err
	}
	if err := s.checkDim(op, FieldText, text); err != nil {
		return err
	}
	req := map[string]any{
		"points": []map[string]any{{
			"id": PointID(mediaID),
			"vector": map[string]any{
				string(FieldImage): image,
				string(FieldText):  text,
			},
			"payload": map[string]any{payloadMediaIDKey: mediaID},
		}},
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), req, nil)
}

// Hits returns the nearest media ids for one named vector, nearest first.
func (s *mediaIndex) Hits(ctx context.Context, vector []float32, field Field, limit int) ([]Hit, error) {
	const op = "search"
	if _, ok := ParseField(string(field)); !ok {
		return nil, opErr(op, OperationErrorValidation, fmt.Sprintf("unknown vector field %q", field), nil)
	}
	if err := s.checkDim(op, field, vector); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	req := map[string]any{
		"vector":       map[string]any{"name": string(field), "vector": vector},
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
		"params":       map[string]any{"hnsw_ef": s.cfg.SearchEF},
	}
	var raw []scoredPoint
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}
	out := make([]Hit, 0, len(raw))
	for _, p := range raw {
		id := mediaIDOf(p.Payload, p.ID)
		if id == "" {
			continue
		}
		out = append(out, Hit{MediaID: id, Distance: 1 - p.Score})
	}
	return out, nil
}

func (s *mediaIndex) Search(ctx context.Context, vector []float32, field Field, limit int) (SearchResult, error) {
	hits, err := s.Hits(ctx, vector, field, limit)
	if err != nil {
		return SearchResult{}, err
	}
	return Partition(hits, field), nil
}

// Partition splits hits into identical and similar tiers. Image searches drop the
// first similar hit as the query's own entry; text searches fold every hit into
// Similar, identical ones last.
func Partition(hits []Hit, field Field) SearchResult {
	identical := []string{}
	similar := []string{}
	for _, h := range hits {
		if h.Distance < IdenticalThreshold {
			identical = append(identical, h.MediaID)
		} else {
			similar = append(similar, h.MediaID)
		}
	}
	if field == FieldText {
		return SearchResult{Similar: append(similar, identical...)}
	}
	if len(similar) > 0 {
		similar = similar[1:]
	}
	return SearchResult{Identical: identical, Similar: similar}
}

func (s *mediaIndex) GetByID(ctx context.Context, mediaID string) (EmbeddingPair, error) {
	const op = "get"
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return EmbeddingPair{}, opErr(op, OperationErrorValidation, "media id is required", nil)
	}
	req := map[string]any{
		"ids":          []string{PointID(mediaID)},
		"with_payload": true,
		"with_vector":  true,
	}
	var raw []storedPoint
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points"), req, &raw); err != nil {
		return EmbeddingPair{}, err
	}
	if len(raw) == 0 {
		return EmbeddingPair{}, ErrNotFound
	}
	pair := EmbeddingPair{
		Image: raw[0].Vector[string(FieldImage)],
		Text:  raw[0].Vector[string(FieldText)],
	}
	if len(pair.Image) == 0 || len(pair.Text) == 0 {
		return EmbeddingPair{}, opErr(op, OperationErrorDecodeFailed, "stored point is missing a named vector", nil)
	}
	return pair, nil
}

// PointID maps a media id onto the UUID qdrant requires for point ids.
func PointID(mediaID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(mediaID)).String()
}

func (s *mediaIndex) checkDim(op string, field Field, v []float32) error {
	if len(v) == 0 {
		return opErr(op, OperationErrorValidation, fmt.Sprintf("%s vector required", field), nil)
	}
	if len(v) != s.cfg.VectorDim {
		return opErr(op, OperationErrorValidation, fmt.Sprintf(
			"%s vector dimension mismatch: expected=%d got=%d", field, s.cfg.VectorDim, len(v),
		), nil)
	}
	return nil
}

func (s *mediaIndex) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}
	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func (s *mediaIndex) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

// mediaIDOf prefers the payload id; the point id is a hash and only useful as a last resort.
func mediaIDOf(payload map[string]any, rawID json.RawMessage) string {
	if v, ok := payload[payloadMediaIDKey].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	var idString string
	if err := json.Unmarshal(rawID, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	return ""
}
