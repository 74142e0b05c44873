package ingest

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/mediahub-backend/internal/data/aggregates"
	"github.com/yungbote/mediahub-backend/internal/data/repos"
	types "github.com/yungbote/mediahub-backend/internal/domain"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/media/fingerprint"
	"github.com/yungbote/mediahub-backend/internal/observability"
	"github.com/yungbote/mediahub-backend/internal/platform/blob"
	"github.com/yungbote/mediahub-backend/internal/platform/clip"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

// ClassifyTopK is how many vocabulary tags an untagged upload receives.
const ClassifyTopK = 7

type Step string

const (
	StepVectorInsert Step = "vector_insert"
	StepBlobWrite    Step = "blob_write"
)

type Embedder interface {
	Encode(ctx context.Context, inputs []clip.Input) ([][]float32, error)
	Classify(ctx context.Context, raw []byte, labels []string, k int) ([]string, error)
}

type VectorIndex interface {
	Insert(ctx context.Context, mediaID string, image, text []float32) error
}

type Vocabulary interface {
	Names(ctx context.Context) ([]string, error)
}

type Hasher interface {
	Fingerprint(ctx context.Context, d *fingerprint.Decoded) (string, error)
}

// RepairQueue schedules post-commit steps that failed.
type RepairQueue interface {
	EnqueueRepair(ctx context.Context, task RepairTask) error
}

type RepairTask struct {
	MediaID string `json:"media_id"`
	Steps   []Step `json:"steps"`
	// Blob holds the upload when the blob write failed; nothing else keeps it.
	Blob []byte `json:"blob,omitempty"`
}

type Request struct {
	Raw         []byte
	Title       string
	Description string
	Tags        []string
	Collections []string
	Sources     []string
	IsNSFW      bool
	// Scope is public or private; empty means private.
	Scope       string
	OwnerUserID string
}

type Result struct {
	Media    *types.Media
	Tags     []string
	Degraded []Step
}

type Deps struct {
	Log         *logger.Logger
	Tx          aggregates.TxRunner
	Media       repos.MediaRepo
	Tags        repos.TagRepo
	Collections repos.CollectionRepo
	Vocabulary  Vocabulary
	Embedder    Embedder
	Index       VectorIndex
	Blobs       blob.Store
	Hasher      Hasher
	Scorer      Scorer
	Repairs     RepairQueue
}

type Pipeline struct {
	Deps
	log               *logger.Logger
	tracer            trace.Tracer
	postCommitTimeout time.Duration
	newID             func() string
	newKey            func(format string) string
}

func NewPipeline(d Deps) (*Pipeline, error) {
	if d.Log == nil || d.Tx == nil || d.Media == nil || d.Tags == nil || d.Collections == nil {
		return nil, fmt.Errorf("ingest: logger, tx runner and repos are required")
	}
	if d.Embedder == nil || d.Index == nil || d.Blobs == nil {
		return nil, fmt.Errorf("ingest: embedder, index and blob store are required")
	}
	if d.Hasher == nil {
		d.Hasher = fingerprint.NewHasher(0)
	}
	if d.Scorer == nil {
		d.Scorer = PlaceholderScorer{}
	}
	return &Pipeline{
		Deps:              d,
		log:               d.Log.With("service", "IngestPipeline"),
		tracer:            otel.Tracer("github.com/yungbote/mediahub-backend/internal/media/ingest"),
		postCommitTimeout: 2 * time.Minute,
		newID:             NewMediaID,
		newKey:            StorageKey,
	}, nil
}

// NewMediaID is the high 64 bits of a random UUID in decimal.
func NewMediaID() string {
	u := uuid.New()
	return strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 10)
}

// StorageKey places GIFs under gifs/ and everything else under images/.
func StorageKey(format string) string {
	name := uuid.Must(uuid.NewUUID()).String()
	if format == "gif" {
		return "gifs/" + name + ".gif"
	}
	return "images/" + name + "." + format
}

// Ingest runs decode, dedup, embedding and the metadata commit in order. Failures
// after the commit degrade the result instead of failing it.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "ingest")
	defer span.End()

	start := time.Now()
	res, err := p.ingest(ctx, req)
	observability.Current().ObserveIngest(Outcome(res, err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("media.id", res.Media.ID), attribute.Int("media.degraded_steps", len(res.Degraded)))
	return res, nil
}

func (p *Pipeline) ingest(ctx context.Context, req Request) (*Result, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, validation("title is required")
	}
	if strings.TrimSpace(req.OwnerUserID) == "" {
		return nil, validation("owner is required")
	}
	scope, ok := domainmedia.ParseMediaScope(strings.ToLower(strings.TrimSpace(req.Scope)))
	if !ok {
		return nil, validation("unknown scope %q", req.Scope)
	}

	_, decodeSpan := p.tracer.Start(ctx, "ingest.decode")
	decoded, err := fingerprint.Decode(req.Raw)
	decodeSpan.End()
	if err != nil {
		return nil, err
	}

	// Fan-out A.
	var (
		key      string
		hash     string
		imageB64 string
	)
	gctx, fanA := p.tracer.Start(ctx, "ingest.fanout_a")
	g, gctx := errgroup.WithContext(gctx)
	g.Go(func() error {
		key = p.newKey(decoded.Format)
		return nil
	})
	g.Go(func() error {
		var err error
		hash, err = p.Hasher.Fingerprint(gctx, decoded)
		return err
	})
	g.Go(func() error {
		imageB64 = base64.StdEncoding.EncodeToString(req.Raw)
		return nil
	})
	err = g.Wait()
	fanA.End()
	if err != nil {
		return nil, err
	}

	existing, err := p.Media.GetByFingerprint(dbctx.Context{Ctx: ctx}, hash)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	if existing != nil {
		return nil, &DuplicateError{MediaID: existing.ID, Fingerprint: hash}
	}

	tags, err := p.resolveTagNames(ctx, req)
	if err != nil {
		return nil, err
	}

	// Fan-out B.
	var (
		vectors [][]float32
		score   Score
	)
	text := embedText(req.Title, req.Description, tags)
	gctx, fanB := p.tracer.Start(ctx, "ingest.fanout_b")
	g, gctx = errgroup.WithContext(gctx)
	g.Go(func() error {
		var err error
		vectors, err = p.Embedder.Encode(gctx, []clip.Input{{Blob: imageB64}, {Text: text}})
		if err != nil {
			return fmt.Errorf("%w: encode: %v", ErrUpstream, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		score, err = p.Scorer.Score(gctx, decoded)
		return err
	})
	err = g.Wait()
	fanB.End()
	if err != nil {
		return nil, err
	}

	row := &types.Media{
		ID:          p.newID(),
		URL:         key,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Fingerprint: hash,
		Span:        decoded.Span(),
		Sources:     repos.CleanNames(req.Sources),
		Score:       score.Value,
		Color:       score.Color,
		IsNSFW:      req.IsNSFW,
		Scope:       scope,
		OwnerUserID: req.OwnerUserID,
		VectorState: domainmedia.StatePending,
		BlobState:   domainmedia.StatePending,
	}
	if err := p.commit(ctx, row, tags, req.Collections); err != nil {
		return nil, err
	}

	degraded := p.afterCommit(ctx, row, vectors[0], vectors[1], req.Raw)
	return &Result{Media: row, Tags: tags, Degraded: degraded}, nil
}

func (p *Pipeline) resolveTagNames(ctx context.Context, req Request) ([]string, error) {
	if tags := repos.CleanNames(req.Tags); len(tags) > 0 {
		return tags, nil
	}
	if p.Vocabulary == nil {
		return []string{}, nil
	}
	ctx, span := p.tracer.Start(ctx, "ingest.classify")
	defer span.End()
	vocab, err := p.Vocabulary.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tag vocabulary: %w", err)
	}
	if len(vocab) == 0 {
		return []string{}, nil
	}
	tags, err := p.Embedder.Classify(ctx, req.Raw, vocab, ClassifyTopK)
	if err != nil {
		return nil, fmt.Errorf("%w: classify: %v", ErrUpstream, err)
	}
	return tags, nil
}

func (p *Pipeline) commit(ctx context.Context, row *types.Media, tags, collections []string) error {
	ctx, span := p.tracer.Start(ctx, "ingest.commit")
	defer span.End()

	err := p.Tx.InTx(ctx, func(dbc dbctx.Context) error {
		tagIDs, err := p.tagIDs(dbc, tags)
		if err != nil {
			return err
		}
		collectionIDs, err := p.collectionIDs(dbc, row.OwnerUserID, collections)
		if err != nil {
			return err
		}
		if err := p.Media.Create(dbc, row); err != nil {
			return err
		}
		if err := p.Media.AttachTags(dbc, row.ID, tagIDs); err != nil {
			return err
		}
		return p.Media.AttachCollections(dbc, row.ID, collectionIDs)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrForbidden) {
		return err
	}
	if aggregates.IsUniqueViolationOn(err, "fingerprint") {
		dup := &DuplicateError{Fingerprint: row.Fingerprint}
		if existing, lookupErr := p.Media.GetByFingerprint(dbctx.Context{Ctx: ctx}, row.Fingerprint); lookupErr == nil && existing != nil {
			dup.MediaID = existing.ID
		}
		p.log.Info("Concurrent duplicate rejected at commit", "fingerprint", row.Fingerprint, "media_id", dup.MediaID)
		return dup
	}
	return fmt.Errorf("persist media: %w", err)
}

func (p *Pipeline) tagIDs(dbc dbctx.Context, names []string) ([]uint, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := p.Tags.GetByNames(dbc, names)
	if err != nil {
		return nil, err
	}
	found := make(map[string]uint, len(rows))
	for _, t := range rows {
		found[t.Name] = t.ID
	}
	ids := make([]uint, 0, len(names))
	var unknown []string
	for _, n := range names {
		id, ok := found[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		ids = append(ids, id)
	}
	if len(unknown) > 0 {
		return nil, validation("unknown tags: %s", strings.Join(unknown, ", "))
	}
	return ids, nil
}

func (p *Pipeline) collectionIDs(dbc dbctx.Context, ownerID string, names []string) ([]uint, error) {
	names = repos.CleanNames(names)
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := p.Collections.GetByNames(dbc, names)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*types.Collection, len(rows))
	var private []uint
	for _, c := range rows {
		byName[c.Name] = c
		if !c.IsPublic() && c.OwnerUserID != ownerID {
			private = append(private, c.ID)
		}
	}
	granted, err := p.Collections.AccessibleIDs(dbc, ownerID, private)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(names))
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			return nil, validation("unknown collection: %s", n)
		}
		if !c.IsPublic() && c.OwnerUserID != ownerID && !granted[c.ID] {
			return nil, fmt.Errorf("%w: %s", ErrForbidden, n)
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// afterCommit writes the vectors and the blob concurrently. It runs detached from
// the request context so a disconnecting client does not strand a committed row.
func (p *Pipeline) afterCommit(ctx context.Context, row *types.Media, image, text []float32, raw []byte) []Step {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.postCommitTimeout)
	defer cancel()
	ctx, span := p.tracer.Start(ctx, "ingest.fanout_c")
	defer span.End()

	var (
		mu     sync.Mutex
		failed []Step
	)
	fail := func(step Step, err error) {
		p.log.Error("Post-commit step failed", "media_id", row.ID, "step", string(step), "error", err)
		span.RecordError(err, trace.WithAttributes(attribute.String("step", string(step))))
		observability.Current().IncSideEffectFailure(string(step))
		mu.Lock()
		failed = append(failed, step)
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := p.Index.Insert(ctx, row.ID, image, text); err != nil {
			fail(StepVectorInsert, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := p.Blobs.Put(ctx, row.URL, raw); err != nil {
			fail(StepBlobWrite, err)
		}
		return nil
	})
	_ = g.Wait()

	row.VectorState, row.BlobState = domainmedia.StateOK, domainmedia.StateOK
	task := RepairTask{MediaID: row.ID}
	for _, s := range failed {
		switch s {
		case StepVectorInsert:
			row.VectorState = domainmedia.StateFailed
		case StepBlobWrite:
			row.BlobState = domainmedia.StateFailed
			task.Blob = raw
		}
		task.Steps = append(task.Steps, s)
	}
	if err := p.Media.SetSideEffectStates(dbctx.Context{Ctx: ctx}, row.ID, row.VectorState, row.BlobState); err != nil {
		// Rows left pending are still picked up by the repair scan.
		p.log.Error("Failed to record post-commit state", "media_id", row.ID, "error", err)
	}
	if len(failed) == 0 {
		return nil
	}
	if p.Repairs == nil {
		p.log.Warn("No repair queue configured; media stays degraded", "media_id", row.ID)
		return failed
	}
	if err := p.Repairs.EnqueueRepair(ctx, task); err != nil {
		p.log.Error("Failed to enqueue repair", "media_id", row.ID, "error", err)
	}
	return failed
}

// embedText is the document behind the text vector: title, description and
// space-joined tags run together with no separator between the parts.
func embedText(title, description string, tags []string) string {
	return title + description + strings.Join(tags, " ")
}
