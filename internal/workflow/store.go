package workflow

import (
	"errors"
	"sync"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

var (
	// ErrJobNotFound is returned for lookups of an unknown job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobExists is returned when inserting a job id twice.
	ErrJobExists = errors.New("job already exists")
)

// Store holds job records. Implementations must be safe for concurrent use and
// return copies so callers never observe later mutation.
type Store interface {
	Insert(job models.Job) error
	Get(id string) (models.Job, bool)
	List() []models.Job
	Update(id string, fn func(*models.Job) error) error
}

// MemoryStore keeps jobs in process memory for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*models.Job
	order []string
}

// NewMemoryStore constructs an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.Job)}
}

// Insert adds a new job record.
func (s *MemoryStore) Insert(job models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.JobID]; ok {
		return ErrJobExists
	}
	s.jobs[job.JobID] = &job
	s.order = append(s.order, job.JobID)
	return nil
}

// Get returns a snapshot of the job.
func (s *MemoryStore) Get(id string) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

// List returns snapshots of every job in insertion order.
func (s *MemoryStore) List() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.jobs[id])
	}
	return out
}

// Update applies fn to a working copy of the job and stores it when fn succeeds.
func (s *MemoryStore) Update(id string, fn func(*models.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	working := *job
	if err := fn(&working); err != nil {
		return err
	}
	*job = working
	return nil
}
