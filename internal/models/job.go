package models

import (
	"bytes"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job statuses.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// JobSummary is what a finished diagnostic run found.
type JobSummary struct {
	Stage       string   `json:"stage"`
	Category    string   `json:"category,omitempty"`
	NodeCount   int      `json:"node_count"`
	FirstNodeID string   `json:"first_node_id,omitempty"`
	ParamKeys   []string `json:"param_keys,omitempty"`
}

// Job is one diagnostic run started through the API.
type Job struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Error      string      `json:"error,omitempty"`
	Summary    *JobSummary `json:"summary,omitempty"`
	Output     []string    `json:"output"`
	mu         sync.Mutex
}

// AppendLog adds a log line to the job output.
func (j *Job) AppendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Output = append(j.Output, line)
}

// LogsSince returns log lines starting from the given index.
func (j *Job) LogsSince(offset int) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if offset >= len(j.Output) {
		return nil
	}
	lines := make([]string, len(j.Output)-offset)
	copy(lines, j.Output[offset:])
	return lines
}

// Complete marks the job as completed.
func (j *Job) Complete(summary JobSummary) {
	j.finish(JobCompleted, "", summary)
}

// Fail marks the job as failed with an error message.
func (j *Job) Fail(err string, summary JobSummary) {
	j.finish(JobFailed, err, summary)
}

func (j *Job) finish(status, err string, summary JobSummary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Error = err
	j.Summary = &summary
	now := time.Now()
	j.FinishedAt = &now
}

// CurrentStatus returns the status under the job lock.
func (j *Job) CurrentStatus() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// Done reports whether the job has finished.
func (j *Job) Done() bool {
	s := j.CurrentStatus()
	return s == JobCompleted || s == JobFailed
}

// Snapshot returns a copy that is safe to encode while the job runs.
func (j *Job) Snapshot() *Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	cp := &Job{
		ID:         j.ID,
		Status:     j.Status,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		Error:      j.Error,
		Summary:    j.Summary,
		Output:     make([]string, len(j.Output)),
	}
	copy(cp.Output, j.Output)
	return cp
}

// Writer returns an io.Writer that appends every complete line written to it
// as a log line. A trailing partial line is held until the next newline.
func (j *Job) Writer() io.Writer {
	return &lineWriter{job: j}
}

type lineWriter struct {
	job *Job
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// incomplete line, put it back
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.job.AppendLog(line[:len(line)-1])
	}
	return len(p), nil
}

// JobStore is an in-memory thread-safe store for jobs.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create adds a new running job, assigning it a UUID.
func (s *JobStore) Create() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := &Job{
		ID:        uuid.New().String(),
		Status:    JobRunning,
		StartedAt: time.Now(),
		Output:    []string{},
	}
	s.jobs[j.ID] = j
	return j
}

// Get returns a job by ID, or nil if not found.
func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// List returns all jobs, most recent first.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].StartedAt.After(result[b].StartedAt)
	})
	return result
}
