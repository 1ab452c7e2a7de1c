package jobs

import "fmt"

// Registry is an ordered set of jobs keyed by name.
// Register panics on duplicate names to catch wiring mistakes at startup.
type Registry struct {
	jobs  []Job
	index map[string]Job
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]Job)}
}

// Register adds job. Panics if the name is already registered.
func (r *Registry) Register(job Job) {
	if _, exists := r.index[job.Name()]; exists {
		panic(fmt.Sprintf("duplicate job name: %q", job.Name()))
	}
	r.jobs = append(r.jobs, job)
	r.index[job.Name()] = job
}

// All returns the jobs in registration order.
func (r *Registry) All() []Job {
	return r.jobs
}

// Get returns the job registered under name.
func (r *Registry) Get(name string) (Job, bool) {
	j, ok := r.index[name]
	return j, ok
}

// Catalog returns a registry of every job, unwired. It is only good for
// Name and Description.
func Catalog() *Registry {
	r := NewRegistry()
	for _, j := range []Job{
		&AKS{}, &CVE{}, &Docs{}, &Helm{}, &Usage{},
		&Npm{}, &PaloAlto{}, &Apps{}, &Renovate{},
	} {
		r.Register(j)
	}
	return r
}
