package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dlbot/internal/media"
	"github.com/desertthunder/dlbot/internal/models"
)

// History persists download records. Implemented by repositories.DownloadRepository.
type History interface {
	Create(download *models.Download) error
	Update(download *models.Download) error
}

// Submission is a user's request to run a download.
type Submission struct {
	UserID   int64
	UserName string
	URL      string
	Kind     string
	Label    string
	OutDir   string
}

// RunFunc performs the work of a task. It usually ends in [Worker.Download].
type RunFunc func(ctx context.Context, task *Task) (*Result, error)

// Manager starts tasks, keeps the registry in sync and records history.
type Manager struct {
	registry *Registry
	history  History
	logger   *log.Logger
	wg       sync.WaitGroup
}

// NewManager returns a Manager. history may be nil.
func NewManager(registry *Registry, history History, logger *log.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{registry: registry, history: history, logger: logger}
}

// Registry returns the registry tasks are tracked in.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Start registers a task for sub.UserID and runs fn on a new goroutine.
// It returns [ErrTaskActive] without running fn when the user already has a task.
func (m *Manager) Start(ctx context.Context, sub Submission, fn RunFunc) (*Task, error) {
	task, taskCtx := newTask(ctx, sub.UserID, sub.Label, sub.OutDir)
	if err := m.registry.Register(task); err != nil {
		task.finish()
		return nil, err
	}

	record := models.NewDownload(sub.UserID, sub.UserName, sub.URL, sub.Kind, sub.Label)
	record.SetID(task.ID)
	if m.history != nil {
		if err := m.history.Create(record); err != nil {
			m.logger.Warn("failed to record download", "err", err)
		}
	}

	logger := m.logger.With("task", task.ID, "user", sub.UserID)
	logger.Info("download started", "url", sub.URL, "kind", sub.Kind)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer task.finish()
		// unregister while the task is still unfinished, so the entry is its own
		defer m.registry.Unregister(task.UserID)

		res, err := fn(taskCtx, task)
		m.record(record, res, err, logger)
	}()

	return task, nil
}

// Wait blocks until every started task has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) record(record *models.Download, res *Result, err error, logger *log.Logger) {
	if res == nil {
		res = &Result{}
	}

	status := models.StatusCompleted
	var message string
	switch {
	case err == nil:
	case errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled):
		status = models.StatusCancelled
	default:
		status = models.StatusFailed
		message = media.LastLine(err.Error())
	}

	if res.Downloaded == 1 && len(res.Titles) == 1 && res.Titles[0] != "" {
		record.SetLabel(res.Titles[0])
	}
	record.Finish(status, res.Downloaded, res.Skipped, res.Failed, message)
	logger.Debug("download recorded", "status", status)

	if m.history != nil {
		if err := m.history.Update(record); err != nil {
			logger.Warn("failed to update download record", "err", err)
		}
	}
}
