package submission

import (
	"context"
	"errors"
	"sync"

	"github.com/lyzr/entityeditor/common/clients"
)

// ErrAlreadySubmitted is returned while a submission is in flight or after
// one has succeeded
var ErrAlreadySubmitted = errors.New("entity already submitted")

// Poster sends an assembled payload
type Poster interface {
	Submit(ctx context.Context, payload any) (*clients.SubmitResult, error)
}

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Submitter issues at most one request at a time. A failed request
// releases the lock and records a message for the user; a successful one
// keeps it, since the form is finished.
type Submitter struct {
	poster Poster
	logger Logger

	mu          sync.Mutex
	submitted   bool
	submitError string
	result      *clients.SubmitResult
}

// NewSubmitter creates a submitter posting through poster
func NewSubmitter(poster Poster, logger Logger) *Submitter {
	return &Submitter{
		poster: poster,
		logger: logger,
	}
}

// Submit posts payload unless a submission is already in flight or done
func (s *Submitter) Submit(ctx context.Context, payload any) (*clients.SubmitResult, error) {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	s.submitted = true
	s.submitError = ""
	s.mu.Unlock()

	result, err := s.poster.Submit(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.submitted = false
		s.submitError = ErrorMessage(err)
		s.logger.Warn("submission failed", "error", s.submitError)
		return nil, err
	}
	s.result = result
	return result, nil
}

// Submitted reports whether a submission is in flight or has succeeded
func (s *Submitter) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// SubmitError returns the message of the last failed submission
func (s *Submitter) SubmitError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitError
}

// Result returns the response of the successful submission, if any
func (s *Submitter) Result() *clients.SubmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// ErrorMessage prefers the server's error text over the transport error
func ErrorMessage(err error) string {
	var serverErr *clients.ServerError
	if errors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}
	return err.Error()
}
