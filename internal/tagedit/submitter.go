// Package tagedit drives the batch tag edit dialog: one Submitter per
// dialog session, at most one request in flight.
package tagedit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"expenses/internal/core"
	"expenses/internal/txnclient"
)

// State of a dialog session.
type State int

const (
	Idle State = iota
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrInFlight is returned when a submission is already running.
var ErrInFlight = errors.New("tag edit already in flight")

// Patcher applies tag edits. *txnclient.Client satisfies it.
type Patcher interface {
	PatchTags(ctx context.Context, edit core.TagEdit) error
}

// Result is the outcome shown by the dialog.
type Result struct {
	State   State
	Details string
}

// Submitter is safe for concurrent use.
type Submitter struct {
	patcher Patcher

	mu   sync.Mutex
	last Result
}

func NewSubmitter(p Patcher) *Submitter {
	return &Submitter{patcher: p, last: Result{State: Idle}}
}

// Submit sends the edit and records the outcome. A backend or transport
// failure is not an error of Submit: it is reported in the Result.
func (s *Submitter) Submit(ctx context.Context, ids []string, op core.TagEditOp, tags []string) (Result, error) {
	s.mu.Lock()
	if s.last.State == Submitting {
		s.mu.Unlock()
		return Result{State: Submitting}, ErrInFlight
	}
	s.last = Result{State: Submitting}
	s.mu.Unlock()

	edit := core.TagEdit{IDs: ids, Op: op, Tags: tags}.Normalized()
	res := Result{State: Success, Details: "OK"}
	if err := s.patcher.PatchTags(ctx, edit); err != nil {
		res = Result{State: Failed, Details: failureDetails(err)}
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	return res, nil
}

// State returns the latest result.
func (s *Submitter) State() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Reset moves a finished session back to Idle so it can be retried.
// It has no effect while a request is in flight.
func (s *Submitter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.State != Submitting {
		s.last = Result{State: Idle}
	}
}

// ParseTags splits the raw dialog input on whitespace.
func ParseTags(raw string) []string {
	return core.NormalizeTags(strings.Fields(raw))
}

func failureDetails(err error) string {
	var fe *txnclient.FetchError
	if errors.As(err, &fe) && fe.Kind == txnclient.KindTransport {
		return fmt.Sprintf("error forwarding request to update tags to backend: %v", fe.Err)
	}
	return err.Error()
}
