package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/mediahub-backend/internal/data/repos/testutil"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/dbctx"
	"github.com/yungbote/mediahub-backend/internal/platform/qdrant"
)

type fakeVectors struct {
	stored    map[string]qdrant.EmbeddingPair
	result    qdrant.SearchResult
	lastQuery []float32
}

func (f *fakeVectors) GetByID(_ context.Context, id string) (qdrant.EmbeddingPair, error) {
	p, ok := f.stored[id]
	if !ok {
		return qdrant.EmbeddingPair{}, qdrant.ErrNotFound
	}
	return p, nil
}

func (f *fakeVectors) Search(_ context.Context, vec []float32, _ qdrant.Field, _ int) (qdrant.SearchResult, error) {
	f.lastQuery = vec
	return f.result, nil
}

func TestRecommendShiftsAwayFromDislikes(t *testing.T) {
	f := newFixture(t)
	me := testutil.SeedUser(t, f.ctx, f.db, "me")
	other := testutil.SeedUser(t, f.ctx, f.db, "other")
	liked1 := testutil.SeedMedia(t, f.ctx, f.db, other.ID, "liked1")
	liked2 := testutil.SeedMedia(t, f.ctx, f.db, other.ID, "liked2")
	disliked := testutil.SeedMedia(t, f.ctx, f.db, other.ID, "disliked")
	seen := testutil.SeedMedia(t, f.ctx, f.db, other.ID, "seen")
	mine := testutil.SeedMedia(t, f.ctx, f.db, me.ID, "mine")
	fresh := testutil.SeedPublicMedia(t, f.ctx, f.db, other.ID, "fresh")
	testutil.SeedMedia(t, f.ctx, f.db, other.ID, "private")

	dbc := dbctx.New(f.ctx)
	_ = f.set.Activity.SetPreference(dbc, me.ID, liked1.ID, domainmedia.Like)
	_ = f.set.Activity.SetPreference(dbc, me.ID, liked2.ID, domainmedia.Like)
	_ = f.set.Activity.SetPreference(dbc, me.ID, disliked.ID, domainmedia.Dislike)
	_ = f.set.Activity.RecordView(dbc, me.ID, seen.ID)

	vecs := &fakeVectors{
		stored: map[string]qdrant.EmbeddingPair{
			liked1.ID:   {Image: []float32{1, 0}, Text: []float32{0, 0}},
			liked2.ID:   {Image: []float32{0, 1}, Text: []float32{0, 0}},
			disliked.ID: {Image: []float32{0.5, 0}, Text: []float32{0, 0}},
		},
		result: qdrant.SearchResult{
			Identical: []string{liked1.ID},
			Similar:   []string{seen.ID, mine.ID, fresh.ID, disliked.ID, "gone"},
		},
	}
	svc := NewRecommendationService(testutil.Logger(t), f.set.Activity, vecs, f.media, 0)

	got, err := svc.Recommend(f.ctx, me.ID)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(vecs.lastQuery) != 2 || vecs.lastQuery[0] != 0 || vecs.lastQuery[1] != 0.5 {
		t.Fatalf("query vector: want=[0 0.5] got=%v", vecs.lastQuery)
	}
	if !sameSet(mediaIDs(got), []string{fresh.ID}) {
		t.Fatalf("recommendations: want=[%s] got=%v", fresh.ID, mediaIDs(got))
	}
}

func TestRecommendWithoutLikesIsNotFound(t *testing.T) {
	f := newFixture(t)
	me := testutil.SeedUser(t, f.ctx, f.db, "me")
	svc := NewRecommendationService(testutil.Logger(t), f.set.Activity, &fakeVectors{}, f.media, 0)
	if _, err := svc.Recommend(f.ctx, me.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound got=%v", err)
	}
}
