package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/entityeditor/common/clients"
	"github.com/lyzr/entityeditor/common/identifiers"
	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/submission"
	"github.com/lyzr/entityeditor/common/validation"
)

type pendingWork struct {
	session *Session
	include bool
}

// WorkState is a pending work as exposed in UnifiedState
type WorkState struct {
	State
	Include bool `json:"include"`
}

// UnifiedState is a read-only snapshot of a unified form
type UnifiedState struct {
	ID      string               `json:"id"`
	Edition State                `json:"edition"`
	Works   map[string]WorkState `json:"works"`
	Series  map[string]State     `json:"series"`
	ISBN    submission.ISBNField `json:"isbn"`
}

// Unified is the multi-entity creation form: a new edition together with
// the works and series created alongside it, submitted as one batch.
// Each entity is edited through its own Session whose BBID is its
// batch-local key ("e0", "w0", "s0"); keys are never reused.
type Unified struct {
	id     string
	deps   Deps
	logger Logger

	mu         sync.Mutex
	edition    *Session
	works      map[string]*pendingWork
	series     map[string]*Session
	nextWork   int
	nextSeries int
	isbn       submission.ISBNField
	submitter  *submission.Submitter
}

// NewUnified starts a unified form for a new edition
func NewUnified(deps Deps, edition Options) (*Unified, error) {
	edition.EntityType = models.EntityEdition
	edition.BBID = submission.EditionKey
	ed, err := New(deps, edition)
	if err != nil {
		return nil, fmt.Errorf("edition session: %w", err)
	}

	u := &Unified{
		id:      uuid.NewString(),
		deps:    deps,
		logger:  deps.Logger,
		edition: ed,
		works:   make(map[string]*pendingWork),
		series:  make(map[string]*Session),
	}
	if deps.Poster != nil {
		u.submitter = submission.NewSubmitter(deps.Poster, deps.Logger)
	}
	return u, nil
}

// ID returns the id of the unified form
func (u *Unified) ID() string {
	return u.id
}

// Edition returns the edition session
func (u *Unified) Edition() *Session {
	return u.edition
}

// AddWork starts a new work, included in the batch by default, and
// returns its batch-local key
func (u *Unified) AddWork(opts Options) (string, *Session, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	key := fmt.Sprintf("w%d", u.nextWork)
	opts.EntityType = models.EntityWork
	opts.BBID = key
	s, err := New(u.deps, opts)
	if err != nil {
		return "", nil, fmt.Errorf("work session: %w", err)
	}
	u.nextWork++
	u.works[key] = &pendingWork{session: s, include: true}
	return key, s, nil
}

// Work returns the session of a pending work
func (u *Unified) Work(key string) (*Session, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	w, ok := u.works[key]
	if !ok {
		return nil, false
	}
	return w.session, true
}

// SetWorkIncluded marks a pending work for inclusion in the batch
func (u *Unified) SetWorkIncluded(key string, include bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	w, ok := u.works[key]
	if !ok {
		return fmt.Errorf("no pending work %s", key)
	}
	w.include = include
	return nil
}

// RemoveWork discards a pending work
func (u *Unified) RemoveWork(key string) {
	u.mu.Lock()
	w, ok := u.works[key]
	delete(u.works, key)
	u.mu.Unlock()
	if ok {
		w.session.Close()
	}
}

// AddSeries starts a new series and returns its batch-local key
func (u *Unified) AddSeries(opts Options) (string, *Session, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	key := fmt.Sprintf("s%d", u.nextSeries)
	opts.EntityType = models.EntitySeries
	opts.BBID = key
	s, err := New(u.deps, opts)
	if err != nil {
		return "", nil, fmt.Errorf("series session: %w", err)
	}
	u.nextSeries++
	u.series[key] = s
	return key, s, nil
}

// Series returns the session of a pending series
func (u *Unified) Series(key string) (*Session, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.series[key]
	return s, ok
}

// RemoveSeries discards a pending series
func (u *Unified) RemoveSeries(key string) {
	u.mu.Lock()
	s, ok := u.series[key]
	delete(u.series, key)
	u.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Entity returns the session behind a batch key: EditionKey, a work key
// or a series key
func (u *Unified) Entity(key string) (*Session, bool) {
	if key == submission.EditionKey {
		return u.edition, true
	}
	if s, ok := u.Work(key); ok {
		return s, true
	}
	return u.Series(key)
}

// LastTouched returns the latest touch time over all sessions of the form
func (u *Unified) LastTouched() time.Time {
	_, all := u.sessions(false)
	var last time.Time
	for _, s := range all {
		if t := s.LastTouched(); t.After(last) {
			last = t
		}
	}
	return last
}

// SetISBN sets the edition's ISBN fast-path field. The type is resolved
// only when the value is recognised as an ISBN-10 or ISBN-13.
func (u *Unified) SetISBN(raw string) submission.ISBNField {
	raw = strings.TrimSpace(raw)
	field := submission.ISBNField{Value: raw}

	catalog := u.edition.identifiers
	if guessed, ok := catalog.Guess(raw); ok &&
		(guessed.Label == identifiers.LabelISBN10 || guessed.Label == identifiers.LabelISBN13) {
		field.Type = guessed.ID
		field.Value = catalog.CanonicalValue(raw, guessed.ID)
	}

	u.mu.Lock()
	u.isbn = field
	u.mu.Unlock()
	return field
}

// State returns a snapshot of every entity of the form
func (u *Unified) State() UnifiedState {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := UnifiedState{
		ID:      u.id,
		Edition: u.edition.State(),
		Works:   make(map[string]WorkState, len(u.works)),
		Series:  make(map[string]State, len(u.series)),
		ISBN:    u.isbn,
	}
	for key, w := range u.works {
		st.Works[key] = WorkState{State: w.session.State(), Include: w.include}
	}
	for key, s := range u.series {
		st.Series[key] = s.State()
	}
	return st
}

// ISBN returns the fast-path ISBN field
func (u *Unified) ISBN() submission.ISBNField {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.isbn
}

// sessions lists every session with its batch key, works and series in
// key order after the edition
func (u *Unified) sessions(includedOnly bool) ([]string, []*Session) {
	u.mu.Lock()
	defer u.mu.Unlock()

	keys := []string{submission.EditionKey}
	all := []*Session{u.edition}

	workKeys := make([]string, 0, len(u.works))
	for key, w := range u.works {
		if includedOnly && !w.include {
			continue
		}
		workKeys = append(workKeys, key)
	}
	sort.Strings(workKeys)
	for _, key := range workKeys {
		keys = append(keys, key)
		all = append(all, u.works[key].session)
	}

	seriesKeys := make([]string, 0, len(u.series))
	for key := range u.series {
		seriesKeys = append(seriesKeys, key)
	}
	sort.Strings(seriesKeys)
	for _, key := range seriesKeys {
		keys = append(keys, key)
		all = append(all, u.series[key])
	}
	return keys, all
}

// Validate reports every entity that will be submitted, by batch key
func (u *Unified) Validate() map[string]validation.Report {
	keys, all := u.sessions(true)
	out := make(map[string]validation.Report, len(keys))
	for i, s := range all {
		out[keys[i]] = s.Validate()
	}
	return out
}

// Assemble flushes pending edits of every entity and builds the batch
func (u *Unified) Assemble() (map[string]submission.Payload, error) {
	_, all := u.sessions(false)
	for _, s := range all {
		s.Flush()
	}

	u.mu.Lock()
	batch := submission.BatchSections{
		Edition: u.edition.Sections(),
		Works:   make(map[string]submission.PendingWork, len(u.works)),
		Series:  make(map[string]submission.Sections, len(u.series)),
		ISBN:    u.isbn,
	}
	for key, w := range u.works {
		batch.Works[key] = submission.PendingWork{Sections: w.session.Sections(), Include: w.include}
	}
	for key, s := range u.series {
		batch.Series[key] = s.Sections()
	}
	u.mu.Unlock()

	return submission.AssembleBatch(batch, u.deps.Roles)
}

// Submit validates every included entity and posts the batch
func (u *Unified) Submit(ctx context.Context) (*clients.SubmitResult, error) {
	if u.submitter == nil {
		return nil, fmt.Errorf("unified form %s has no submission endpoint", u.id)
	}

	payloads, err := u.Assemble()
	if err != nil {
		return nil, err
	}

	var blocked []string
	for key, report := range u.Validate() {
		for _, field := range report.Errors() {
			blocked = append(blocked, key+"."+field)
		}
	}
	if len(blocked) > 0 {
		sort.Strings(blocked)
		return nil, fmt.Errorf("%w: %v", ErrBlocked, blocked)
	}

	result, err := u.submitter.Submit(ctx, payloads)
	if err != nil {
		return nil, err
	}
	u.logger.Info("batch submitted", "unified_id", u.id, "entities", len(payloads), "bbid", result.BBID)
	return result, nil
}

// SubmitError returns the message of the last failed batch submission
func (u *Unified) SubmitError() string {
	if u.submitter == nil {
		return ""
	}
	return u.submitter.SubmitError()
}

// Close closes every session of the form
func (u *Unified) Close() {
	_, all := u.sessions(false)
	for _, s := range all {
		s.Close()
	}
}
