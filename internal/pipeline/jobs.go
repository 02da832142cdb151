package pipeline

import (
	"sync"
	"time"

	"github.com/scholarlab/datastet/internal/annotate"
)

// JobStatus represents the state of an annotation job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusSegmenting  JobStatus = "segmenting"
	StatusClassifying JobStatus = "classifying"
	StatusAnnotating  JobStatus = "annotating"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusPartial     JobStatus = "partial"
)

// Job tracks the state of a single document annotation run.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	tei      string
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalSentences   int      `json:"total_sentences"`
	RelevantSections int      `json:"relevant_sections"`
	Datasets         int      `json:"datasets"`
	DataInstances    int      `json:"data_instances"`
	Errors           []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotalSentences records the sentence count after parsing.
func (j *Job) SetTotalSentences(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalSentences = n
	j.UpdatedAt = time.Now()
}

// SetRelevantSections records how many sections passed the gate.
func (j *Job) SetRelevantSections(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.RelevantSections = n
	j.UpdatedAt = time.Now()
}

// SetResult records the annotation counts and the serialized document.
func (j *Job) SetResult(res *annotate.Result, tei string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Datasets = res.Datasets
	j.Progress.DataInstances = res.DataInstances
	j.tei = tei
	j.UpdatedAt = time.Now()
}

// TEI returns the annotated document, empty until the run completes.
func (j *Job) TEI() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tei
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Progress Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:       j.ID,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Title:    j.Title,
		Progress: Progress{
			TotalSentences:   j.Progress.TotalSentences,
			RelevantSections: j.Progress.RelevantSections,
			Datasets:         j.Progress.Datasets,
			DataInstances:    j.Progress.DataInstances,
			Errors:           errs,
		},
	}
}
