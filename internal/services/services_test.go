package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sort"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/mediahub-backend/internal/data/aggregates"
	"github.com/yungbote/mediahub-backend/internal/data/repos"
	"github.com/yungbote/mediahub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/mediahub-backend/internal/domain"
)

type fixture struct {
	ctx   context.Context
	db    *gorm.DB
	set   repos.Set
	media MediaService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	set := repos.New(db, testutil.Logger(t))
	return &fixture{
		ctx:   context.Background(),
		db:    db,
		set:   set,
		media: NewMediaService(testutil.Logger(t), set.Media, set.Collections, nil),
	}
}

func (f *fixture) collections(t *testing.T) CollectionService {
	t.Helper()
	return NewCollectionService(testutil.Logger(t), aggregates.NewGormTxRunner(f.db), f.set, f.media)
}

func mediaIDs(rows []*types.Media) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	a = append([]string(nil), a...)
	b = append([]string(nil), b...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 16), uint8(y * 16), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}
