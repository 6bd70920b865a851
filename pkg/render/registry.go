package render

import (
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultFinishedJobs is how many finished jobs a Registry keeps addressable.
const DefaultFinishedJobs = 256

// Registry tracks jobs by ID: running jobs until they finish, then the most recently
// finished ones. Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	live     map[string]*Job
	finished *lru.Cache[string, *Job]
}

// NewRegistry creates a registry keeping up to finished finished jobs.
func NewRegistry(finished int) *Registry {
	if finished <= 0 {
		finished = DefaultFinishedJobs
	}
	cache, _ := lru.New[string, *Job](finished)
	return &Registry{live: make(map[string]*Job), finished: cache}
}

// Track registers job and moves it to the finished set once it is done.
func (r *Registry) Track(job *Job) {
	r.mu.Lock()
	r.live[job.ID()] = job
	r.mu.Unlock()

	go func() {
		<-job.Done()
		r.mu.Lock()
		delete(r.live, job.ID())
		r.finished.Add(job.ID(), job)
		r.mu.Unlock()
	}()
}

// Lookup returns the job with the given ID.
func (r *Registry) Lookup(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.live[id]; ok {
		return job, true
	}
	return r.finished.Get(id)
}

// IDs returns the IDs of every tracked job, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.live)+r.finished.Len())
	for id := range r.live {
		ids = append(ids, id)
	}
	ids = append(ids, r.finished.Keys()...)
	r.mu.Unlock()
	slices.Sort(ids)
	return ids
}

// CancelAll cancels every running job.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	jobs := make([]*Job, 0, len(r.live))
	for _, j := range r.live {
		jobs = append(jobs, j)
	}
	r.mu.Unlock()

	for _, j := range jobs {
		j.Cancel()
	}
}
