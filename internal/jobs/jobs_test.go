package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yungbote/mediahub-backend/internal/media/ingest"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, t)
	return &asynq.TaskInfo{ID: "id-1", Queue: QueueRepair}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type fakeRepairer struct {
	got     []ingest.RepairTask
	err     error
	scanAge time.Duration
	scanned int
}

func (f *fakeRepairer) Repair(_ context.Context, task ingest.RepairTask) error {
	f.got = append(f.got, task)
	return f.err
}

func (f *fakeRepairer) EnqueueDegraded(_ context.Context, minAge time.Duration, _ int) (int, error) {
	f.scanAge = minAge
	return f.scanned, nil
}

type fakeRefresher struct{ names []string }

func (f *fakeRefresher) Refresh(_ context.Context, names []string) (int, error) {
	f.names = names
	return len(names), nil
}

func TestQueueEnqueueRepair(t *testing.T) {
	enq := &fakeEnqueuer{}
	q := newQueue(logger.Nop(), enq)
	task := ingest.RepairTask{MediaID: "42", Steps: []ingest.Step{ingest.StepBlobWrite}, Blob: []byte{1, 2}}

	if err := q.EnqueueRepair(context.Background(), task); err != nil {
		t.Fatalf("EnqueueRepair: %v", err)
	}
	if len(enq.tasks) != 1 || enq.tasks[0].Type() != TypeMediaRepair {
		t.Fatalf("tasks: got=%v", enq.tasks)
	}
	var back ingest.RepairTask
	if err := json.Unmarshal(enq.tasks[0].Payload(), &back); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if back.MediaID != "42" || len(back.Blob) != 2 {
		t.Fatalf("payload: got=%+v", back)
	}

	enq.err = asynq.ErrTaskIDConflict
	if err := q.EnqueueRepair(context.Background(), task); err != nil {
		t.Fatalf("already queued should not fail: %v", err)
	}
	if err := q.EnqueueRepair(context.Background(), ingest.RepairTask{MediaID: "42"}); err == nil {
		t.Fatalf("task without steps should be rejected")
	}
}

func TestHandleRepairSkipsRetryForLostBlob(t *testing.T) {
	rep := &fakeRepairer{err: ingest.ErrBlobLost}
	h := NewHandlers(logger.Nop(), HandlerConfig{}, rep, &fakeRefresher{})
	task, _ := NewRepairTask(ingest.RepairTask{MediaID: "7", Steps: []ingest.Step{ingest.StepVectorInsert}})

	err := h.HandleRepair(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("want SkipRetry got=%v", err)
	}
	if len(rep.got) != 1 || rep.got[0].MediaID != "7" {
		t.Fatalf("repairer input: got=%+v", rep.got)
	}

	rep.err = errors.New("qdrant down")
	if err := h.HandleRepair(context.Background(), task); err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transient failure should be retried: got=%v", err)
	}

	bad := asynq.NewTask(TypeMediaRepair, []byte("{"))
	if err := h.HandleRepair(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("bad payload: want SkipRetry got=%v", err)
	}
}

func TestHandleRepairScanUsesMinAge(t *testing.T) {
	rep := &fakeRepairer{scanned: 3}
	h := NewHandlers(logger.Nop(), HandlerConfig{ScanMinAge: time.Minute}, rep, &fakeRefresher{})
	if err := h.HandleRepairScan(context.Background(), NewRepairScanTask()); err != nil {
		t.Fatalf("HandleRepairScan: %v", err)
	}
	if rep.scanAge != time.Minute {
		t.Fatalf("min age: want=1m got=%v", rep.scanAge)
	}
}

func TestHandleTagsRefreshReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tags.txt")
	if err := os.WriteFile(path, []byte("# vocabulary\ncat\n\ndog\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ref := &fakeRefresher{}
	h := NewHandlers(logger.Nop(), HandlerConfig{TagFile: path}, &fakeRepairer{}, ref)

	task, _ := NewTagsRefreshTask("")
	if err := h.HandleTagsRefresh(context.Background(), task); err != nil {
		t.Fatalf("HandleTagsRefresh: %v", err)
	}
	if len(ref.names) != 2 || ref.names[0] != "cat" || ref.names[1] != "dog" {
		t.Fatalf("names: got=%v", ref.names)
	}
}

func TestParseTagFile(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"tags.yaml", "- cat\n- dog\n", []string{"cat", "dog"}},
		{"tags.yml", "tags:\n  - fox\n", []string{"fox"}},
		{"tags.txt", " owl \n#skip\n", []string{"owl"}},
	}
	for _, tc := range cases {
		got, err := ParseTagFile(tc.name, []byte(tc.raw))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
			}
		}
	}
	if _, err := ParseTagFile("bad.yaml", []byte("tags: [unterminated")); err == nil {
		t.Fatalf("malformed yaml should fail")
	}
}
