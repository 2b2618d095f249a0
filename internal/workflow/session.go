// Package workflow sequences one tray scan: before photo, dish, after photo,
// analysis and result.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"ecodining/internal/models"
	"ecodining/internal/vision"
)

type State int

const (
	StateIdle State = iota
	StateCaptureBefore
	StateSelectDish
	StateCaptureAfter
	StateAnalyzing
	StateResult
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCaptureBefore:
		return "capture_before"
	case StateSelectDish:
		return "select_dish"
	case StateCaptureAfter:
		return "capture_after"
	case StateAnalyzing:
		return "analyzing"
	case StateResult:
		return "result"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateResult; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown workflow state %q", text)
}

// Session is the value carried between transitions. Every transition returns
// a new Session and leaves the receiver untouched; on error the returned
// Session is the receiver itself.
type Session struct {
	State  State
	Before []byte
	After  []byte
	Dish   string
	Result *models.ScanResult
}

func (s Session) guard(action string, allowed State) error {
	if s.State == allowed {
		return nil
	}
	if s.State == StateAnalyzing {
		return fmt.Errorf("%w: cannot %s", ErrBusy, action)
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, s.State)
}

// Start opens a capture session.
func (s Session) Start() (Session, error) {
	if err := s.guard("start scan", StateIdle); err != nil {
		return s, err
	}
	return Session{State: StateCaptureBefore}, nil
}

// CaptureBefore holds (or replaces) the before photo. It does not advance.
func (s Session) CaptureBefore(data []byte) (Session, error) {
	if err := s.guard("capture before photo", StateCaptureBefore); err != nil {
		return s, err
	}
	if len(data) == 0 {
		return s, ErrEmptyImage
	}
	s.Before = append([]byte(nil), data...)
	return s, nil
}

// Next leaves CaptureBefore once a before photo is held.
func (s Session) Next() (Session, error) {
	if err := s.guard("continue", StateCaptureBefore); err != nil {
		return s, err
	}
	if len(s.Before) == 0 {
		return s, fmt.Errorf("%w: before photo", ErrMissingInput)
	}
	s.State = StateSelectDish
	return s, nil
}

// SelectDish records the dish and moves on to the after photo.
func (s Session) SelectDish(dish string, menu *Menu) (Session, error) {
	if err := s.guard("select dish", StateSelectDish); err != nil {
		return s, err
	}
	if dish == "" {
		return s, fmt.Errorf("%w: dish", ErrMissingInput)
	}
	if !menu.Contains(dish) {
		return s, fmt.Errorf("%w: %q", ErrUnknownDish, dish)
	}
	s.Dish = dish
	s.State = StateCaptureAfter
	return s, nil
}

// CaptureAfter holds (or replaces) the after photo. It does not advance.
func (s Session) CaptureAfter(data []byte) (Session, error) {
	if err := s.guard("capture after photo", StateCaptureAfter); err != nil {
		return s, err
	}
	if len(data) == 0 {
		return s, ErrEmptyImage
	}
	s.After = append([]byte(nil), data...)
	return s, nil
}

// BeginAnalysis enters Analyzing. All three inputs must be present.
func (s Session) BeginAnalysis() (Session, error) {
	if s.State == StateAnalyzing {
		return s, ErrAlreadyAnalyzing
	}
	if err := s.guard("analyze", StateCaptureAfter); err != nil {
		return s, err
	}
	var missing []string
	if len(s.Before) == 0 {
		missing = append(missing, "before photo")
	}
	if s.Dish == "" {
		missing = append(missing, "dish")
	}
	if len(s.After) == 0 {
		missing = append(missing, "after photo")
	}
	if len(missing) > 0 {
		return s, fmt.Errorf("%w: %s", ErrMissingInput, strings.Join(missing, ", "))
	}
	s.State = StateAnalyzing
	return s, nil
}

// Complete stores the finished result.
func (s Session) Complete(result *models.ScanResult) (Session, error) {
	if s.State != StateAnalyzing {
		return s, fmt.Errorf("%w: no analysis running", ErrInvalidTransition)
	}
	s.Result = result
	s.State = StateResult
	return s, nil
}

// Fail routes an analysis failure back to the step that can fix it. A bad
// photo is dropped and its capture step reopened; anything else (timeouts)
// returns to CaptureAfter with every input kept.
func (s Session) Fail(cause error) Session {
	if s.State != StateAnalyzing {
		return s
	}
	var de *vision.DecodeError
	if errors.As(cause, &de) && de.Source == "before" {
		s.Before = nil
		s.State = StateCaptureBefore
		return s
	}
	if errors.As(cause, &de) {
		s.After = nil
	}
	s.State = StateCaptureAfter
	return s
}

// Dismiss closes the result and discards photos and dish.
func (s Session) Dismiss() (Session, error) {
	if err := s.guard("dismiss", StateResult); err != nil {
		return s, err
	}
	return Session{State: StateIdle}, nil
}

// Cancel abandons the session from any state except Analyzing.
func (s Session) Cancel() (Session, error) {
	if s.State == StateAnalyzing {
		return s, fmt.Errorf("%w: cannot cancel", ErrBusy)
	}
	return Session{State: StateIdle}, nil
}
