// Package session owns the editing state of one entity form: the section
// stores, the id generator that names new rows, the debounce queue for
// text edits and the initial snapshot used to detect unsaved changes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/lyzr/entityeditor/common/clients"
	"github.com/lyzr/entityeditor/common/debounce"
	"github.com/lyzr/entityeditor/common/identifiers"
	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/relationships"
	"github.com/lyzr/entityeditor/common/rows"
	"github.com/lyzr/entityeditor/common/series"
	"github.com/lyzr/entityeditor/common/submission"
	"github.com/lyzr/entityeditor/common/validation"
)

var (
	// ErrUnknownCommand is returned by Dispatch for an unrecognised op
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNoSuchRow is returned when a command names a row that is not there
	ErrNoSuchRow = errors.New("no such row")

	// ErrNotSeries is returned for series commands on other entity types
	ErrNotSeries = errors.New("entity has no series section")

	// ErrBlocked is returned by Submit while a field is in error
	ErrBlocked = errors.New("form has validation errors")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("session closed")
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Deps are the process-wide collaborators shared by all sessions
type Deps struct {
	Identifiers    *identifiers.Catalog
	Resolver       *relationships.Resolver
	Validator      *validation.Validator
	Roles          submission.RoleIDs
	Poster         submission.Poster
	DebounceWindow time.Duration
	Logger         Logger
}

// Options describe the entity being edited; the slices are its persisted
// state and are empty when creating a new entity
type Options struct {
	EntityType     models.EntityType        `json:"entityType"`
	BBID           string                   `json:"bbid,omitempty"`
	Name           models.Alias             `json:"name"`
	Disambiguation string                   `json:"disambiguation,omitempty"`
	Aliases        []models.Alias           `json:"aliases,omitempty"`
	Identifiers    []models.Identifier      `json:"identifiers,omitempty"`
	Relationships  []models.Relationship    `json:"relationships,omitempty"`
	SeriesOrder    *models.SeriesOrderState `json:"seriesOrder,omitempty"`
	SeriesItems    []models.Relationship    `json:"seriesItems,omitempty"`
	AuthorCredits  []models.AuthorCredit    `json:"authorCredits,omitempty"`
	Annotation     string                   `json:"annotation,omitempty"`
}

// SeriesState is the series section as exposed in State
type SeriesState struct {
	Order models.SeriesOrderState        `json:"order"`
	Items rows.Store[models.Relationship] `json:"items"`
}

// State is a read-only snapshot of the whole editing tree
type State struct {
	EntityType     models.EntityType               `json:"entityType"`
	BBID           string                          `json:"bbid,omitempty"`
	Name           models.Alias                    `json:"name"`
	Disambiguation string                          `json:"disambiguation"`
	Aliases        rows.Store[models.Alias]        `json:"aliases"`
	Identifiers    rows.Store[models.Identifier]   `json:"identifiers"`
	Relationships  rows.Store[models.Relationship] `json:"relationships"`
	Series         *SeriesState                    `json:"series,omitempty"`
	AuthorCredits  []models.AuthorCredit           `json:"authorCredits,omitempty"`
	Annotation     string                          `json:"annotation"`
	Note           string                          `json:"note"`
}

// Session is one editing session. All state changes take the session
// lock; debounced edits re-enter through it when their timer fires.
type Session struct {
	id         string
	entityType models.EntityType
	bbid       string
	createdAt  time.Time

	gen         *rows.IDGenerator
	identifiers *identifiers.Catalog
	resolver    *relationships.Resolver
	validator   *validation.Validator
	debounce    *debounce.Coalescer
	submitter   *submission.Submitter
	seriesRoles map[models.EntityType]int
	logger      Logger

	mu             sync.Mutex
	closed         bool
	name           models.Alias
	disambiguation string
	aliases        rows.Store[models.Alias]
	identifierRows rows.Store[models.Identifier]
	relationships  *relationships.Section
	series         *series.Section
	authorCredits  []models.AuthorCredit
	annotation     string
	note           string
	touched        time.Time

	initial []byte
}

// New starts a session for opts
func New(deps Deps, opts Options) (*Session, error) {
	if !opts.EntityType.Valid() {
		return nil, fmt.Errorf("invalid entity type: %q", opts.EntityType)
	}
	if deps.Identifiers == nil || deps.Resolver == nil || deps.Validator == nil {
		return nil, fmt.Errorf("session requires identifier catalog, resolver and validator")
	}

	s := &Session{
		id:             uuid.NewString(),
		entityType:     opts.EntityType,
		bbid:           opts.BBID,
		createdAt:      time.Now(),
		gen:            rows.NewIDGenerator(),
		identifiers:    deps.Identifiers.Scoped(opts.EntityType),
		resolver:       deps.Resolver,
		validator:      deps.Validator,
		debounce:       debounce.New(deps.DebounceWindow),
		seriesRoles:    deps.Roles.Series,
		logger:         deps.Logger,
		name:           opts.Name,
		disambiguation: opts.Disambiguation,
		aliases:        rows.FromValues(opts.Aliases),
		identifierRows: rows.FromValues(opts.Identifiers),
		relationships:  relationships.NewSection(opts.Relationships),
		authorCredits:  append([]models.AuthorCredit(nil), opts.AuthorCredits...),
		annotation:     opts.Annotation,
	}
	s.touched = s.createdAt
	if deps.Poster != nil {
		s.submitter = submission.NewSubmitter(deps.Poster, deps.Logger)
	}

	if opts.EntityType == models.EntitySeries {
		order := models.SeriesOrderState{OrderType: models.OrderAutomatic, SeriesType: models.EntityWork}
		if opts.SeriesOrder != nil {
			if opts.SeriesOrder.OrderType != 0 {
				order.OrderType = opts.SeriesOrder.OrderType
			}
			if opts.SeriesOrder.SeriesType != "" {
				order.SeriesType = opts.SeriesOrder.SeriesType
			}
		}
		s.series = series.NewSection(order, opts.SeriesItems)
	}

	initial, err := json.Marshal(s.stateLocked())
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot initial state: %w", err)
	}
	s.initial = initial

	s.logger.Info("editing session started",
		"session_id", s.id,
		"entity_type", s.entityType,
		"bbid", s.bbid)
	return s, nil
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// EntityType returns the type of the edited entity
func (s *Session) EntityType() models.EntityType {
	return s.entityType
}

// Entity returns the edited entity as a relationship endpoint
func (s *Session) Entity() models.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entityLocked()
}

func (s *Session) entityLocked() models.Entity {
	return models.Entity{
		BBID:           s.bbid,
		Type:           s.entityType,
		DefaultAlias:   s.name.Name,
		Disambiguation: s.disambiguation,
	}
}

// LastTouched returns when the last command was applied
func (s *Session) LastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// State returns a snapshot of the editing tree
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		EntityType:     s.entityType,
		BBID:           s.bbid,
		Name:           s.name,
		Disambiguation: s.disambiguation,
		Aliases:        s.aliases,
		Identifiers:    s.identifierRows,
		Relationships:  s.relationships.Rows(),
		AuthorCredits:  append([]models.AuthorCredit(nil), s.authorCredits...),
		Annotation:     s.annotation,
		Note:           s.note,
	}
	if s.series != nil {
		st.Series = &SeriesState{Order: s.series.OrderState(), Items: s.series.Items()}
	}
	return st
}

// mutate runs fn under the session lock and records the touch time
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := fn(); err != nil {
		return err
	}
	s.touched = time.Now()
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// debounced queues fn under key; fn runs later under the session lock
func (s *Session) debounced(key string, fn func()) {
	s.debounce.Push(key, func() {
		if err := s.mutate(func() error { fn(); return nil }); err != nil {
			s.logger.Debug("dropped debounced edit", "session_id", s.id, "key", key, "error", err)
		}
	})
}

// Flush applies every pending debounced edit now
func (s *Session) Flush() int {
	return s.debounce.Flush()
}

// Pending returns the keys of debounced edits not applied yet
func (s *Session) Pending() []string {
	return s.debounce.Pending()
}

// Changes returns a JSON merge patch from the initial state to the
// current one; "{}" means nothing changed
func (s *Session) Changes() ([]byte, error) {
	s.mu.Lock()
	current, err := json.Marshal(s.stateLocked())
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	patch, err := jsonpatch.CreateMergePatch(s.initial, current)
	if err != nil {
		return nil, fmt.Errorf("failed to diff state: %w", err)
	}
	return patch, nil
}

// HasUnsavedChanges reports whether the state differs from the initial one
func (s *Session) HasUnsavedChanges() bool {
	patch, err := s.Changes()
	if err != nil {
		s.logger.Warn("failed to compute changes", "session_id", s.id, "error", err)
		return true
	}
	return !jsonpatch.Equal(patch, []byte(`{}`))
}

// Validate reports the per-field validation state
func (s *Session) Validate() validation.Report {
	s.mu.Lock()
	form := validation.Form{
		Name:           s.name,
		Disambiguation: s.disambiguation,
		Aliases:        s.aliases,
		Identifiers:    s.identifierRows,
	}
	s.mu.Unlock()

	report, err := s.validator.Validate(form)
	if err != nil {
		s.logger.Error("validation rule failed", "session_id", s.id, "error", err)
	}
	return report
}

// Sections returns the state in the shape the assembler consumes
func (s *Session) Sections() submission.Sections {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sectionsLocked()
}

func (s *Session) sectionsLocked() submission.Sections {
	sections := submission.Sections{
		EntityType:     s.entityType,
		Name:           s.name,
		Disambiguation: s.disambiguation,
		Aliases:        s.aliases,
		Identifiers:    s.identifierRows,
		Relationships:  s.relationships.Relationships(),
		AuthorCredits:  append([]models.AuthorCredit(nil), s.authorCredits...),
		Annotation:     s.annotation,
		Note:           s.note,
	}
	if s.series != nil {
		sections.Series = &submission.SeriesSection{
			Order: s.series.OrderState(),
			Items: s.series.Items().Values(),
		}
	}
	return sections
}

// Payload flushes pending edits and assembles the submission payload
func (s *Session) Payload() submission.Payload {
	s.Flush()
	return submission.AssembleSingleEntity(s.Sections())
}

// Submit flushes pending edits, refuses while any field is in error and
// posts the payload. A failed submit keeps all state for a retry.
func (s *Session) Submit(ctx context.Context) (*clients.SubmitResult, error) {
	if s.submitter == nil {
		return nil, fmt.Errorf("session %s has no submission endpoint", s.id)
	}
	s.Flush()

	if report := s.Validate(); report.Blocking() {
		return nil, fmt.Errorf("%w: %v", ErrBlocked, report.Errors())
	}

	result, err := s.submitter.Submit(ctx, submission.AssembleSingleEntity(s.Sections()))
	if err != nil {
		return nil, err
	}
	s.logger.Info("entity submitted", "session_id", s.id, "entity_type", s.entityType, "bbid", result.BBID)
	return result, nil
}

// Submitted reports whether a submission is in flight or done
func (s *Session) Submitted() bool {
	return s.submitter != nil && s.submitter.Submitted()
}

// SubmitError returns the message of the last failed submission
func (s *Session) SubmitError() string {
	if s.submitter == nil {
		return ""
	}
	return s.submitter.SubmitError()
}

// Close drops pending edits; later commands fail with ErrClosed
func (s *Session) Close() {
	s.debounce.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.logger.Info("editing session closed", "session_id", s.id, "age", time.Since(s.createdAt).String())
}
