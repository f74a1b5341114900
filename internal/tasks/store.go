// Package tasks holds the current page of tasks for a query and the
// mutations that keep it in sync with the backend.
package tasks

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"taskman/internal/logging"
	"taskman/internal/service"
)

// Snapshot is a consistent view of the store.
type Snapshot struct {
	Query   service.Query
	Tasks   []service.Task
	Err     error
	Loading bool
	HasNext bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is the single source of truth for the current page of tasks.
// Every fetch is numbered when it is issued; only the latest issued fetch
// may replace the page. A Store is safe for concurrent use.
type Store struct {
	svc    service.Service
	logger *log.Logger

	mu        sync.Mutex
	query     service.Query
	issued    uint64
	applied   uint64
	tasks     []service.Task
	err       error
	listeners []func(Snapshot)
}

// NewStore creates a store for initial. Nothing is fetched until the first Load.
func NewStore(svc service.Service, initial service.Query, opts ...Option) *Store {
	s := &Store{
		svc:   svc,
		query: initial.Normalize(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	s.logger = s.logger.WithPrefix("tasks")
	return s
}

// LoadCall is one issued fetch. Issue and execution are split so callers can
// issue on the event loop and execute on another goroutine.
type LoadCall struct {
	store *Store
	seq   uint64
	query service.Query
}

// Query returns the query this call fetches.
func (c *LoadCall) Query() service.Query {
	return c.query
}

// Do performs the fetch. The result is applied only if no newer fetch was
// issued meanwhile; a superseded result is dropped and Do returns nil.
// Otherwise Do returns the fetch error, if any.
func (c *LoadCall) Do(ctx context.Context) error {
	tasks, err := c.store.svc.ListTasks(ctx, c.query)
	return c.store.apply(c, tasks, err)
}

// Load makes q the current query and issues a fetch for it.
// A different query discards the held page at once.
func (s *Store) Load(q service.Query) *LoadCall {
	return s.issue(func(service.Query) service.Query { return q })
}

// ApplyFilter applies a filter change to the current query. The page resets to 0.
func (s *Store) ApplyFilter(f service.Filter) *LoadCall {
	return s.issue(func(q service.Query) service.Query { return q.Apply(f) })
}

// SetPage moves to page n, keeping every filter.
func (s *Store) SetPage(n int) *LoadCall {
	return s.issue(func(q service.Query) service.Query { return q.WithPage(n) })
}

// NextPage moves forward one page. It reports false when the current page is not full.
func (s *Store) NextPage() (*LoadCall, bool) {
	s.mu.Lock()
	if !s.hasNextLocked() {
		s.mu.Unlock()
		return nil, false
	}
	call := s.issueLocked(s.query.WithPage(s.query.PageNumber + 1))
	s.mu.Unlock()
	return call, true
}

// PrevPage moves back one page. It reports false on the first page.
func (s *Store) PrevPage() (*LoadCall, bool) {
	s.mu.Lock()
	if s.query.PageNumber == 0 {
		s.mu.Unlock()
		return nil, false
	}
	call := s.issueLocked(s.query.WithPage(s.query.PageNumber - 1))
	s.mu.Unlock()
	return call, true
}

// Refresh re-issues the current query.
func (s *Store) Refresh() *LoadCall {
	return s.issue(func(q service.Query) service.Query { return q })
}

func (s *Store) issue(next func(service.Query) service.Query) *LoadCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(next(s.query))
}

func (s *Store) issueLocked(q service.Query) *LoadCall {
	q = q.Normalize()
	if q != s.query {
		s.tasks = nil
		s.err = nil
	}
	s.query = q
	s.issued++
	return &LoadCall{store: s, seq: s.issued, query: s.query}
}

func (s *Store) apply(c *LoadCall, tasks []service.Task, err error) error {
	s.mu.Lock()
	if c.seq != s.issued {
		s.mu.Unlock()
		s.logger.Debug("dropping superseded fetch", "seq", c.seq, "latest", s.issued)
		return nil
	}
	s.applied = c.seq
	s.err = err
	if err == nil {
		s.tasks = tasks
	}
	snap := s.snapshotLocked()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug("fetch failed", "err", err)
	}
	for _, fn := range listeners {
		fn(snap)
	}
	return err
}

// Create validates and creates t, then re-fetches the current query once.
// On failure the page is untouched and no fetch is made.
func (s *Store) Create(ctx context.Context, t service.Task) (service.TaskID, error) {
	if err := service.ValidateNew(t); err != nil {
		return 0, err
	}
	id, err := s.svc.CreateTask(ctx, t)
	if err != nil {
		return 0, err
	}
	s.refetch(ctx)
	return id, nil
}

// Update validates and stores t, then re-fetches the current query once.
func (s *Store) Update(ctx context.Context, t service.Task) (service.Task, error) {
	if err := service.ValidateExisting(t); err != nil {
		return service.Task{}, err
	}
	updated, err := s.svc.UpdateTask(ctx, t)
	if err != nil {
		return service.Task{}, err
	}
	s.refetch(ctx)
	return updated, nil
}

// Complete marks t as COMPLETED. Every other field is sent unchanged.
func (s *Store) Complete(ctx context.Context, t service.Task) (service.Task, error) {
	t.Status = service.StatusCompleted
	return s.Update(ctx, t)
}

// Remove deletes the task with id, then re-fetches the current query once.
func (s *Store) Remove(ctx context.Context, id service.TaskID) error {
	if id <= 0 {
		return &service.ValidationError{Field: "id", Message: "required"}
	}
	if err := s.svc.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.refetch(ctx)
	return nil
}

// refetch reloads after a successful mutation. Its error lands in Err.
func (s *Store) refetch(ctx context.Context) {
	if err := s.Refresh().Do(ctx); err != nil {
		s.logger.Warn("re-fetch after change failed", "err", err)
	}
}

// OnChange registers fn to run after every applied fetch.
// fn runs on the goroutine that executed the fetch.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Query returns the current query.
func (s *Store) Query() service.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Tasks returns a copy of the current page.
func (s *Store) Tasks() []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]service.Task(nil), s.tasks...)
}

// Err returns the error of the latest applied fetch.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) hasNextLocked() bool {
	return len(s.tasks) >= s.query.PageSize
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Query:   s.query,
		Tasks:   append([]service.Task(nil), s.tasks...),
		Err:     s.err,
		Loading: s.applied != s.issued,
		HasNext: s.hasNextLocked(),
	}
}
