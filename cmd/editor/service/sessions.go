package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lyzr/entityeditor/common/clients"
	"github.com/lyzr/entityeditor/common/logger"
	"github.com/lyzr/entityeditor/common/session"
	"github.com/lyzr/entityeditor/common/telemetry"
)

// ErrSessionNotFound is returned for unknown or evicted session ids
var ErrSessionNotFound = errors.New("session not found")

// idle is what the manager needs to evict a form
type idle interface {
	LastTouched() time.Time
	Close()
}

// SessionService owns the open editing sessions and unified forms and
// closes the ones left idle longer than the TTL
type SessionService struct {
	deps session.Deps
	ttl  time.Duration
	tel  *telemetry.Telemetry
	log  *logger.Logger
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session.Session
	unified  map[string]*session.Unified
}

// NewSessionService creates a session service; a non-positive ttl never
// evicts
func NewSessionService(deps session.Deps, ttl time.Duration, tel *telemetry.Telemetry, log *logger.Logger) *SessionService {
	return &SessionService{
		deps:     deps,
		ttl:      ttl,
		tel:      tel,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*session.Session),
		unified:  make(map[string]*session.Unified),
	}
}

// Create starts an editing session
func (s *SessionService) Create(opts session.Options) (*session.Session, error) {
	sess, err := session.New(s.deps, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	s.tel.SessionStarted(string(opts.EntityType))
	return sess, nil
}

// Get returns an open session
func (s *SessionService) Get(id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Close closes and forgets a session
func (s *SessionService) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Close()
	s.tel.SessionClosed(false)
	return nil
}

// Dispatch applies a command to a session
func (s *SessionService) Dispatch(id string, cmd session.Command) (session.Result, error) {
	sess, err := s.Get(id)
	if err != nil {
		return session.Result{}, err
	}
	res, err := sess.Dispatch(cmd)
	s.tel.RecordCommand(cmd.Op, err)
	return res, err
}

// Submit posts a session's payload
func (s *SessionService) Submit(ctx context.Context, id string) (*clients.SubmitResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := sess.Submit(ctx)
	s.tel.RecordSubmission(submitOutcome(err), start)
	if err != nil {
		return nil, err
	}

	s.log.Info("session submitted",
		"session_id", id,
		"entity_type", sess.EntityType(),
		"bbid", result.BBID)
	return result, nil
}

func submitOutcome(err error) string {
	var serverErr *clients.ServerError
	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case errors.Is(err, session.ErrBlocked):
		return telemetry.OutcomeBlocked
	case errors.As(err, &serverErr):
		return telemetry.OutcomeRejected
	default:
		return telemetry.OutcomeError
	}
}

// CreateUnified starts a unified creation form for a new edition
func (s *SessionService) CreateUnified(edition session.Options) (*session.Unified, error) {
	u, err := session.NewUnified(s.deps, edition)
	if err != nil {
		return nil, fmt.Errorf("failed to start unified form: %w", err)
	}

	s.mu.Lock()
	s.unified[u.ID()] = u
	s.mu.Unlock()

	s.tel.SessionStarted("Unified")
	return u, nil
}

// GetUnified returns an open unified form
func (s *SessionService) GetUnified(id string) (*session.Unified, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.unified[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return u, nil
}

// CloseUnified closes and forgets a unified form
func (s *SessionService) CloseUnified(id string) error {
	s.mu.Lock()
	u, ok := s.unified[id]
	delete(s.unified, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	u.Close()
	s.tel.SessionClosed(false)
	return nil
}

// DispatchUnified applies a command to one entity of a unified form
func (s *SessionService) DispatchUnified(id, key string, cmd session.Command) (session.Result, error) {
	u, err := s.GetUnified(id)
	if err != nil {
		return session.Result{}, err
	}
	sess, ok := u.Entity(key)
	if !ok {
		return session.Result{}, fmt.Errorf("%w: %s/%s", ErrSessionNotFound, id, key)
	}
	res, err := sess.Dispatch(cmd)
	s.tel.RecordCommand(cmd.Op, err)
	return res, err
}

// SubmitUnified posts a unified form's batch
func (s *SessionService) SubmitUnified(ctx context.Context, id string) (*clients.SubmitResult, error) {
	u, err := s.GetUnified(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := u.Submit(ctx)
	s.tel.RecordSubmission(submitOutcome(err), start)
	if err != nil {
		return nil, err
	}

	s.log.Info("unified form submitted", "unified_id", id, "bbid", result.BBID)
	return result, nil
}

// Len returns how many sessions and unified forms are open
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions) + len(s.unified)
}

// Evict closes every form idle for longer than the TTL
func (s *SessionService) Evict() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	var expired []idle
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.LastTouched().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	for id, u := range s.unified {
		if u.LastTouched().Before(cutoff) {
			expired = append(expired, u)
			delete(s.unified, id)
		}
	}
	s.mu.Unlock()

	for _, form := range expired {
		form.Close()
		s.tel.SessionClosed(true)
	}
	if len(expired) > 0 {
		s.log.Info("evicted idle sessions", "count", len(expired), "ttl", s.ttl.String())
	}
	return len(expired)
}

// Run evicts idle forms periodically until ctx is done, then closes all
func (s *SessionService) Run(ctx context.Context) {
	if s.ttl > 0 {
		interval := s.ttl / 4
		if interval < time.Second {
			interval = time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				s.Evict()
			}
		}
	} else {
		<-ctx.Done()
	}
	s.CloseAll()
}

// CloseAll closes every open form
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	var forms []idle
	for id, sess := range s.sessions {
		forms = append(forms, sess)
		delete(s.sessions, id)
	}
	for id, u := range s.unified {
		forms = append(forms, u)
		delete(s.unified, id)
	}
	s.mu.Unlock()

	for _, form := range forms {
		form.Close()
		s.tel.SessionClosed(false)
	}
}
