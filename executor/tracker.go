package executor

import (
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// JobStatus is the live view of an in-flight job.
type JobStatus struct {
	ID        string    `json:"id"`
	Language  string    `json:"language"`
	State     JobState  `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

// Tracker records in-flight jobs. A nil *Tracker is valid and records nothing.
type Tracker struct {
	jobs *xsync.MapOf[string, JobStatus]
}

func NewTracker() *Tracker {
	return &Tracker{jobs: xsync.NewMapOf[string, JobStatus]()}
}

func (t *Tracker) Begin(job ExecutionJob) {
	if t == nil {
		return
	}
	t.jobs.Store(job.ID, JobStatus{
		ID:        job.ID,
		Language:  job.Language,
		State:     StateQueued,
		StartedAt: time.Now(),
	})
}

// SetState moves a tracked job to state. Unknown ids are ignored.
func (t *Tracker) SetState(id string, state JobState) {
	if t == nil {
		return
	}
	t.jobs.Compute(id, func(old JobStatus, loaded bool) (JobStatus, bool) {
		if !loaded {
			return old, true
		}
		old.State = state
		return old, false
	})
}

func (t *Tracker) End(id string) {
	if t == nil {
		return
	}
	t.jobs.Delete(id)
}

func (t *Tracker) Active() int {
	if t == nil {
		return 0
	}
	return t.jobs.Size()
}

// Snapshot returns the tracked jobs, oldest first.
func (t *Tracker) Snapshot() []JobStatus {
	if t == nil {
		return nil
	}
	jobs := make([]JobStatus, 0, t.jobs.Size())
	t.jobs.Range(func(_ string, st JobStatus) bool {
		jobs = append(jobs, st)
		return true
	})
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.Before(jobs[j].StartedAt)
	})
	return jobs
}
