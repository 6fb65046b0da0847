package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one unit of reconciliation work executed by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order, keyed by name.
type Registry struct {
	jobs  []Job
	index map[string]int
}

// NewRegistry builds a registry preloaded with jobs. Nil jobs are ignored and
// a duplicate name panics since it is a wiring mistake.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{index: map[string]int{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			panic(err)
		}
	}
	return registry
}

// Register adds a job. Registering the same name twice is an error.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if r.index == nil {
		r.index = map[string]int{}
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("job name required")
	}
	if _, exists := r.index[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	r.index[name] = len(r.jobs)
	r.jobs = append(r.jobs, job)
	return nil
}

// Lookup returns the job registered under name.
func (r *Registry) Lookup(name string) (Job, bool) {
	i, ok := r.index[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	return r.jobs[i], true
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
