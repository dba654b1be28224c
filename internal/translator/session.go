package translator

import (
	"encoding/json"
	"fmt"

	"roster/internal/mbo"
	"roster/pkg/model"
)

type State string

const (
	StateInit               State = "INIT"
	StateResolvingClass     State = "RESOLVING_CLASS"
	StateResolvingStaff     State = "RESOLVING_STAFF"
	StateCheckingDuplicates State = "CHECKING_DUPLICATES"
	StateReady              State = "READY"
	StateBlocked            State = "BLOCKED"
	StatePublishing         State = "PUBLISHING"
	StateSuccess            State = "SUCCESS"
	StateFailed             State = "FAILED"
)

type Action string

const (
	ActionNone   Action = "none"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// BlockedError stops a flow for operator review. It is a result, not a failure.
type BlockedError struct {
	Reason    string
	Conflicts []mbo.ClassSchedule
}

func (e *BlockedError) Error() string {
	return e.Reason
}

func blocked(format string, args ...any) *BlockedError {
	return &BlockedError{Reason: fmt.Sprintf(format, args...)}
}

// Input is what a session needs resolved before it reaches the booking system.
type Input struct {
	Event     *model.Event
	Venue     *model.Venue
	Host      *model.User
	ClassType *model.ClassType
}

// Call records one mutating booking system call.
type Call struct {
	Function string
	Params   any
	Response any
	Success  bool
	Error    string
}

// Session is the state of one event as it moves through the translator.
type Session struct {
	Input
	State   State
	History []State
	Action  Action
	Reason  string

	ClassDescription *mbo.ClassDescription
	StaffID          int64
	Request          *mbo.ClassScheduleRequest
	Overlaps         []mbo.ClassSchedule
	Conflicts        []mbo.ClassSchedule

	// Update path.
	KeepBookingID int64
	Keep          *mbo.ClassSchedule
	Update        *mbo.ClassScheduleUpdate
	Drop          []mbo.ClassSchedule

	BookingID int64
	Calls     []Call
}

func NewSession(in Input) *Session {
	return &Session{
		Input:   in,
		State:   StateInit,
		History: []State{StateInit},
		Action:  ActionNone,
	}
}

func (s *Session) transition(to State) {
	if s.State == to {
		return
	}
	s.State = to
	s.History = append(s.History, to)
}

func (s *Session) block(err *BlockedError) {
	s.Reason = err.Reason
	s.Conflicts = err.Conflicts
	s.transition(StateBlocked)
}

func (s *Session) fail(reason string) {
	s.Reason = reason
	s.transition(StateFailed)
}

func (s *Session) record(call Call) {
	s.Calls = append(s.Calls, call)
}

func (s *Session) Ready() bool {
	return s.State == StateReady
}

func (s *Session) Succeeded() bool {
	return s.State == StateSuccess
}

// Outcome maps the final state to the booking log outcome.
func (s *Session) Outcome() model.BookingOutcome {
	switch s.State {
	case StateBlocked:
		return model.OutcomeBlocked
	case StateFailed:
		return model.OutcomeFailed
	case StateSuccess:
		switch s.Action {
		case ActionCreate:
			return model.OutcomeCreated
		case ActionUpdate:
			return model.OutcomeUpdated
		}
		return model.OutcomeUnchanged
	}
	return model.OutcomeFailed
}

// Report summarizes the session for the audit log.
func (s *Session) Report() map[string]any {
	conflicts := make([]int64, 0, len(s.Conflicts))
	for _, c := range s.Conflicts {
		conflicts = append(conflicts, c.ID)
	}
	calls := make([]map[string]any, 0, len(s.Calls))
	for _, c := range s.Calls {
		calls = append(calls, map[string]any{
			"function": c.Function,
			"params":   c.Params,
			"response": c.Response,
			"success":  c.Success,
			"error":    c.Error,
		})
	}

	report := map[string]any{
		"state":      string(s.State),
		"action":     string(s.Action),
		"history":    s.History,
		"conflicts":  conflicts,
		"calls":      calls,
		"booking_id": s.BookingID,
		"staff_id":   s.StaffID,
	}
	if s.Reason != "" {
		report["reason"] = s.Reason
	}
	if s.ClassDescription != nil {
		report["class_description_id"] = s.ClassDescription.ID
	}
	return report
}

// Payload is the request the session was prepared with, as a stored document.
func (s *Session) Payload() any {
	if s.Request == nil {
		return nil
	}
	return asDocument(s.Request)
}

// document turns a JSON body into a generic value that is stored as a nested document.
func document(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func asDocument(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return document(raw)
}
