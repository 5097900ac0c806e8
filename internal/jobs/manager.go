// Package jobs queues scrape runs submitted over the API and executes them
// one at a time on a single worker.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/maltedev/listing-scraper/internal/queue"
	"github.com/maltedev/listing-scraper/internal/scraper"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrInvalidJob  = errors.New("invalid job")
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = scraper.StatusCompleted
	StatusAborted   = scraper.StatusAborted
	StatusFailed    = scraper.StatusFailed
)

// Runner executes a single scrape run. *scraper.PageScraper satisfies it.
type Runner interface {
	Run(ctx context.Context, url string, pageCount int) *scraper.Report
}

// Job represents a scraping job
type Job struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	PageCount       int        `json:"page_count"`
	Priority        int        `json:"priority"`
	Status          string     `json:"status"`
	RunID           string     `json:"run_id,omitempty"`
	PagesScraped    int        `json:"pages_scraped"`
	BatchSizes      []int      `json:"batch_sizes,omitempty"`
	Records         int        `json:"records"`
	Skipped         int        `json:"skipped"`
	LastPageReached bool       `json:"last_page_reached"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

func (j *Job) clone() *Job {
	c := *j
	if j.BatchSizes != nil {
		c.BatchSizes = append([]int(nil), j.BatchSizes...)
	}
	return &c
}

type Manager struct {
	runner Runner
	queue  queue.Queue
	logger *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewManager(runner Runner, q queue.Queue, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		runner: runner,
		queue:  q,
		logger: logger.With("component", "job_manager"),
		jobs:   make(map[string]*Job),
	}
}

// CreateJob validates and enqueues a run at the default priority. The
// returned job is a snapshot.
func (m *Manager) CreateJob(ctx context.Context, rawURL string, pageCount int) (*Job, error) {
	return m.CreateJobWithPriority(ctx, rawURL, pageCount, 0)
}

// CreateJobWithPriority enqueues a run ahead of every pending run with a lower
// priority. Equal priorities keep submission order.
func (m *Manager) CreateJobWithPriority(ctx context.Context, rawURL string, pageCount, priority int) (*Job, error) {
	if u, err := url.Parse(rawURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be absolute, got %q", ErrInvalidJob, rawURL)
	}
	if pageCount < 1 {
		return nil, fmt.Errorf("%w: pages must be at least 1, got %d", ErrInvalidJob, pageCount)
	}

	task := queue.NewTask(rawURL, pageCount)
	task.Priority = priority
	job := &Job{
		ID:        task.ID.String(),
		URL:       rawURL,
		PageCount: pageCount,
		Priority:  priority,
		Status:    StatusPending,
		CreatedAt: task.CreatedAt,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := job.clone()
	m.mu.Unlock()

	if err := m.queue.Push(task); err != nil {
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	m.logger.Info("job created", "id", job.ID, "url", rawURL, "pages", pageCount, "priority", priority)
	return snapshot, nil
}

func (m *Manager) GetJob(ctx context.Context, jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job.clone(), nil
}

// ListJobs returns all jobs, newest first.
func (m *Manager) ListJobs(ctx context.Context) []*Job {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.clone())
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

// StartWorker runs queued jobs one after another until ctx is done or the
// queue is closed.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")

	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrQueueClosed) && !errors.Is(err, context.Canceled) {
				m.logger.Error("failed to take next job", "error", err)
			}
			m.logger.Info("job worker stopping")
			return
		}
		m.processTask(ctx, task)
	}
}

func (m *Manager) processTask(ctx context.Context, task *queue.Task) {
	id := task.ID.String()
	started := time.Now()
	m.update(id, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &started
	})

	m.logger.Info("processing job", "id", id, "url", task.URL)
	report := m.runner.Run(ctx, task.URL, task.PageCount)

	m.update(id, func(j *Job) {
		completed := report.FinishedAt
		if completed.IsZero() {
			completed = time.Now()
		}
		j.Status = report.Status()
		j.RunID = report.RunID.String()
		j.PagesScraped = report.PagesScraped
		j.BatchSizes = append([]int(nil), report.BatchSizes...)
		j.Records = report.Records
		j.Skipped = report.Skipped
		j.LastPageReached = report.LastPageReached
		j.CompletedAt = &completed
		if report.Err != nil {
			j.Error = report.Err.Error()
		}
	})

	if report.Err != nil {
		m.logger.Error("job failed", "id", id, "status", report.Status(), "error", report.Err)
		return
	}
	m.logger.Info("job completed", "id", id, "records", report.Records)
}

func (m *Manager) update(id string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[id]; ok {
		fn(job)
	}
}

// Stats summarizes jobs by status.
type Stats struct {
	TotalJobs     int `json:"total_jobs"`
	PendingJobs   int `json:"pending_jobs"`
	RunningJobs   int `json:"running_jobs"`
	CompletedJobs int `json:"completed_jobs"`
	FailedJobs    int `json:"failed_jobs"`
	TotalRecords  int `json:"total_records"`
}

func (m *Manager) Stats(ctx context.Context) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Stats
	for _, job := range m.jobs {
		s.TotalJobs++
		s.TotalRecords += job.Records
		switch job.Status {
		case StatusPending:
			s.PendingJobs++
		case StatusRunning:
			s.RunningJobs++
		case StatusCompleted:
			s.CompletedJobs++
		default:
			s.FailedJobs++
		}
	}
	return s
}
