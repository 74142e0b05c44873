package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/blob"
	"github.com/yungbote/mediahub-backend/internal/platform/clip"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
)

// ErrBlobLost means the upload bytes are neither in the task nor in the store.
// Retrying cannot fix it.
var ErrBlobLost = errors.New("ingest: blob lost")

// Repair replays the failed post-commit steps of one media row.
func (p *Pipeline) Repair(ctx context.Context, task RepairTask) error {
	ctx, span := p.tracer.Start(ctx, "ingest.repair")
	defer span.End()
	span.SetAttributes(attribute.String("media.id", task.MediaID))

	dbc := dbctx.Context{Ctx: ctx}
	row, err := p.Media.GetByID(dbc, task.MediaID)
	if err != nil {
		return fmt.Errorf("load media: %w", err)
	}
	if row == nil {
		p.log.Warn("Repair target no longer exists", "media_id", task.MediaID)
		return nil
	}

	raw := task.Blob
	for _, step := range task.Steps {
		if step != StepBlobWrite {
			continue
		}
		if len(raw) > 0 {
			if err := p.Blobs.Put(ctx, row.URL, raw); err != nil {
				return fmt.Errorf("repair blob: %w", err)
			}
		} else {
			ok, err := p.Blobs.Exists(ctx, row.URL)
			if err != nil {
				return fmt.Errorf("repair blob: %w", err)
			}
			if !ok {
				if err := p.Media.SetSideEffectStates(dbc, row.ID, "", domainmedia.StateFailed); err != nil {
					p.log.Error("Failed to record lost blob", "media_id", row.ID, "error", err)
				}
				return fmt.Errorf("%w: %s", ErrBlobLost, row.URL)
			}
		}
		if err := p.Media.SetSideEffectStates(dbc, row.ID, "", domainmedia.StateOK); err != nil {
			return err
		}
		p.log.Info("Repaired blob write", "media_id", row.ID)
	}

	for _, step := range task.Steps {
		if step != StepVectorInsert {
			continue
		}
		if len(raw) == 0 {
			raw, err = p.Blobs.Get(ctx, row.URL)
			if errors.Is(err, blob.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrBlobLost, row.URL)
			}
			if err != nil {
				return fmt.Errorf("read blob: %w", err)
			}
		}
		tags, err := p.Media.TagNames(dbc, []string{row.ID})
		if err != nil {
			return err
		}
		text := embedText(row.Title, row.Description, tags[row.ID])
		vectors, err := p.Embedder.Encode(ctx, []clip.Input{
			{Blob: base64.StdEncoding.EncodeToString(raw)},
			{Text: text},
		})
		if err != nil {
			return fmt.Errorf("%w: encode: %v", ErrUpstream, err)
		}
		if err := p.Index.Insert(ctx, row.ID, vectors[0], vectors[1]); err != nil {
			return fmt.Errorf("repair vectors: %w", err)
		}
		if err := p.Media.SetSideEffectStates(dbc, row.ID, domainmedia.StateOK, ""); err != nil {
			return err
		}
		p.log.Info("Repaired vector insert", "media_id", row.ID)
	}
	return nil
}

// EnqueueDegraded schedules repairs for rows whose post-commit steps never
// settled. Rows younger than minAge may still be inside their own ingest run.
func (p *Pipeline) EnqueueDegraded(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	if p.Repairs == nil {
		return 0, fmt.Errorf("ingest: no repair queue configured")
	}
	rows, err := p.Media.ListDegraded(dbctx.Context{Ctx: ctx}, time.Now().Add(-minAge), limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, row := range rows {
		task := RepairTask{MediaID: row.ID}
		if row.BlobState != domainmedia.StateOK {
			task.Steps = append(task.Steps, StepBlobWrite)
		}
		if row.VectorState != domainmedia.StateOK {
			task.Steps = append(task.Steps, StepVectorInsert)
		}
		if err := p.Repairs.EnqueueRepair(ctx, task); err != nil {
			p.log.Warn("Failed to enqueue repair", "media_id", row.ID, "error", err)
			continue
		}
		n++
	}
	return n, nil
}
