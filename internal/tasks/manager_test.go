package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dlbot/internal/media"
	"github.com/desertthunder/dlbot/internal/models"
	tu "github.com/desertthunder/dlbot/internal/testing"
)

type fakeHistory struct {
	mu      sync.Mutex
	created []*models.Download
	updates []models.DownloadStatus
	err     error
}

func (h *fakeHistory) Create(d *models.Download) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, d)
	return h.err
}

func (h *fakeHistory) Update(d *models.Download) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, d.Status())
	return h.err
}

func (h *fakeHistory) statuses() []models.DownloadStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.DownloadStatus(nil), h.updates...)
}

func waitDone(t *testing.T, task *Task) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestManager(t *testing.T) {
	t.Run("cancel mid-download", func(t *testing.T) {
		f := newFixture(t)
		f.extractor.Listings = map[string]*media.Listing{"url": single("id1", "One")}
		f.extractor.Progress = []media.Progress{downloading(10, 100)}
		f.extractor.Block = make(chan struct{})
		f.extractor.Started = make(chan string, 1)
		worker := f.worker(nil)
		history := &fakeHistory{}
		m := NewManager(NewRegistry(), history, log.New(f.logs))
		status := &tu.RecordingStatus{}

		task, err := m.Start(context.Background(), Submission{UserID: 7, URL: "url", Kind: "audio", Label: "url"},
			func(ctx context.Context, task *Task) (*Result, error) {
				return worker.Download(ctx, Job{Locators: []string{"url"}, Status: status, Label: task.Label})
			})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		<-f.extractor.Started
		if !m.Registry().Cancel(7) {
			t.Fatal("expected Cancel to find the task")
		}
		waitDone(t, task)

		if m.Registry().Len() != 0 {
			t.Error("registry should be empty after cancellation")
		}
		if status.Last() != "🛑 Download cancelled." {
			t.Errorf("unexpected final edit %q", status.Last())
		}
		if f.archive.Len() != 0 {
			t.Error("nothing should be archived")
		}
		if got := history.statuses(); len(got) != 1 || got[0] != models.StatusCancelled {
			t.Errorf("expected cancelled record, got %v", got)
		}
		if m.Registry().Cancel(7) {
			t.Error("Cancel after completion must report false")
		}
	})

	t.Run("failed task is unregistered", func(t *testing.T) {
		f := newFixture(t)
		m := NewManager(NewRegistry(), nil, log.New(f.logs))
		boom := errors.New("boom")

		task, err := m.Start(context.Background(), Submission{UserID: 7, URL: "url", Label: "url"},
			func(ctx context.Context, task *Task) (*Result, error) { return nil, boom })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		waitDone(t, task)

		if m.Registry().Len() != 0 {
			t.Errorf("expected empty registry, got %d", m.Registry().Len())
		}
		next, err := m.Start(context.Background(), Submission{UserID: 7, URL: "url", Label: "url"},
			func(ctx context.Context, task *Task) (*Result, error) { return &Result{}, nil })
		if err != nil {
			t.Fatalf("expected a new task to start, got %v", err)
		}
		waitDone(t, next)
		m.Wait()
	})

	t.Run("duplicate submit is rejected", func(t *testing.T) {
		m := NewManager(nil, nil, log.New(&tu.LockedBuffer{}))
		release := make(chan struct{})
		sub := Submission{UserID: 1, Label: "first"}

		task, err := m.Start(context.Background(), sub, func(ctx context.Context, _ *Task) (*Result, error) {
			<-release
			return &Result{Downloaded: 1}, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ran := false
		_, err = m.Start(context.Background(), sub, func(context.Context, *Task) (*Result, error) {
			ran = true
			return nil, nil
		})
		if !errors.Is(err, ErrTaskActive) {
			t.Errorf("expected ErrTaskActive, got %v", err)
		}

		close(release)
		waitDone(t, task)
		m.Wait()
		if ran {
			t.Error("rejected submission must not run")
		}

		next, err := m.Start(context.Background(), sub, func(context.Context, *Task) (*Result, error) {
			return &Result{}, nil
		})
		if err != nil {
			t.Fatalf("new task after completion should start: %v", err)
		}
		waitDone(t, next)
	})

	t.Run("different users run concurrently", func(t *testing.T) {
		m := NewManager(nil, nil, log.New(&tu.LockedBuffer{}))
		release := make(chan struct{})
		fn := func(ctx context.Context, _ *Task) (*Result, error) {
			<-release
			return &Result{}, nil
		}

		a, errA := m.Start(context.Background(), Submission{UserID: 1}, fn)
		b, errB := m.Start(context.Background(), Submission{UserID: 2}, fn)
		if errA != nil || errB != nil {
			t.Fatalf("unexpected errors: %v, %v", errA, errB)
		}
		if m.Registry().Len() != 2 {
			t.Errorf("expected two active tasks, got %d", m.Registry().Len())
		}
		close(release)
		waitDone(t, a)
		waitDone(t, b)
	})

	t.Run("history records outcome", func(t *testing.T) {
		tc := []struct {
			name string
			res  *Result
			err  error
			want models.DownloadStatus
		}{
			{"completed", &Result{Downloaded: 1, Titles: []string{"Song"}}, nil, models.StatusCompleted},
			{"failed", &Result{Failed: 1}, errors.New("boom\nERROR: gone"), models.StatusFailed},
			{"cancelled", nil, ErrCancelled, models.StatusCancelled},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				history := &fakeHistory{}
				m := NewManager(nil, history, log.New(&tu.LockedBuffer{}))
				task, err := m.Start(context.Background(), Submission{UserID: 3, URL: "u", Kind: "video", Label: "u"},
					func(context.Context, *Task) (*Result, error) { return tt.res, tt.err })
				if err != nil {
					t.Fatal(err)
				}
				waitDone(t, task)

				if len(history.created) != 1 {
					t.Fatalf("expected one created record, got %d", len(history.created))
				}
				record := history.created[0]
				if record.ID() != task.ID {
					t.Errorf("record id %q should match task id %q", record.ID(), task.ID)
				}
				if record.Status() != tt.want {
					t.Errorf("expected %s, got %s", tt.want, record.Status())
				}
				if tt.want == models.StatusCompleted && record.Label() != "Song" {
					t.Errorf("expected label to be the title, got %q", record.Label())
				}
				if tt.want == models.StatusFailed && record.ErrorMessage() != "ERROR: gone" {
					t.Errorf("unexpected error message %q", record.ErrorMessage())
				}
			})
		}
	})

	t.Run("history errors are logged", func(t *testing.T) {
		logs := &tu.LockedBuffer{}
		m := NewManager(nil, &fakeHistory{err: errors.New("database is locked")}, log.New(logs))
		task, err := m.Start(context.Background(), Submission{UserID: 4}, func(context.Context, *Task) (*Result, error) {
			return &Result{}, nil
		})
		if err != nil {
			t.Fatalf("history failures must not block tasks: %v", err)
		}
		waitDone(t, task)
		m.Wait()
		if got := logs.String(); !containsAll(got, "failed to record download", "failed to update download record") {
			t.Errorf("expected history failures in log, got %q", got)
		}
	})
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
