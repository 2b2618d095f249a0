package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecodining/internal/models"
	"ecodining/internal/vision"
)

func testMenu(t *testing.T) *Menu {
	t.Helper()
	m, err := NewMenu(models.DefaultDishes)
	require.NoError(t, err)
	return m
}

func TestSession_TransitionsReturnNewValue(t *testing.T) {
	t.Parallel()

	idle := Session{}
	started, err := idle.Start()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, idle.State)
	assert.Equal(t, StateCaptureBefore, started.State)

	photo := []byte("before")
	held, err := started.CaptureBefore(photo)
	require.NoError(t, err)
	photo[0] = 'X'
	assert.Equal(t, []byte("before"), held.Before, "capture keeps its own copy")
	assert.Nil(t, started.Before)
}

func TestSession_OrderIsEnforced(t *testing.T) {
	t.Parallel()
	menu := testMenu(t)

	s, _ := Session{}.Start()

	_, err := s.SelectDish("Pizza", menu)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.CaptureAfter([]byte("after"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.BeginAnalysis()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.Next()
	assert.ErrorIs(t, err, ErrMissingInput)

	s, _ = s.CaptureBefore([]byte("before"))
	s, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, StateSelectDish, s.State)

	_, err = s.CaptureBefore([]byte("again"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.CaptureAfter([]byte("after"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_Recapture(t *testing.T) {
	t.Parallel()

	s, _ := Session{}.Start()
	s, _ = s.CaptureBefore([]byte("first"))
	s, err := s.CaptureBefore([]byte("second"))
	require.NoError(t, err)
	assert.Equal(t, StateCaptureBefore, s.State)
	assert.Equal(t, []byte("second"), s.Before)

	_, err = s.CaptureBefore(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestSession_SelectDish(t *testing.T) {
	t.Parallel()
	menu := testMenu(t)

	s := Session{State: StateSelectDish, Before: []byte("b")}

	_, err := s.SelectDish("", menu)
	assert.ErrorIs(t, err, ErrMissingInput)
	_, err = s.SelectDish("Sushi", menu)
	assert.ErrorIs(t, err, ErrUnknownDish)

	next, err := s.SelectDish("Mac & Cheese", menu)
	require.NoError(t, err)
	assert.Equal(t, StateCaptureAfter, next.State)
	assert.Equal(t, "Mac & Cheese", next.Dish)
}

func TestSession_BeginAnalysisNeedsEverything(t *testing.T) {
	t.Parallel()

	s := Session{State: StateCaptureAfter, Before: []byte("b"), Dish: "Soup"}
	_, err := s.BeginAnalysis()
	require.ErrorIs(t, err, ErrMissingInput)
	assert.Contains(t, err.Error(), "after photo")

	s.After = []byte("a")
	next, err := s.BeginAnalysis()
	require.NoError(t, err)
	assert.Equal(t, StateAnalyzing, next.State)

	_, err = next.BeginAnalysis()
	assert.ErrorIs(t, err, ErrAlreadyAnalyzing)
}

func TestSession_Analyzing_RejectsInput(t *testing.T) {
	t.Parallel()
	menu := testMenu(t)

	s := Session{State: StateAnalyzing, Before: []byte("b"), After: []byte("a"), Dish: "Soup"}

	_, err := s.CaptureAfter([]byte("x"))
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.SelectDish("Pizza", menu)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Start()
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Cancel()
	assert.ErrorIs(t, err, ErrBusy)
}

func TestSession_Fail(t *testing.T) {
	t.Parallel()

	analyzing := Session{State: StateAnalyzing, Before: []byte("b"), After: []byte("a"), Dish: "Soup"}

	t.Run("bad before photo", func(t *testing.T) {
		t.Parallel()
		s := analyzing.Fail(&vision.DecodeError{Source: "before", Err: errors.New("bad")})
		assert.Equal(t, StateCaptureBefore, s.State)
		assert.Nil(t, s.Before)
		assert.Equal(t, []byte("a"), s.After)
		assert.Equal(t, "Soup", s.Dish)
	})

	t.Run("bad after photo", func(t *testing.T) {
		t.Parallel()
		s := analyzing.Fail(&vision.DecodeError{Source: "after", Err: errors.New("bad")})
		assert.Equal(t, StateCaptureAfter, s.State)
		assert.Nil(t, s.After)
		assert.Equal(t, []byte("b"), s.Before)
	})

	t.Run("timeout keeps photos", func(t *testing.T) {
		t.Parallel()
		s := analyzing.Fail(ErrAnalysisTimeout)
		assert.Equal(t, StateCaptureAfter, s.State)
		assert.Equal(t, []byte("b"), s.Before)
		assert.Equal(t, []byte("a"), s.After)
	})
}

func TestSession_CompleteRequiresAnalyzing(t *testing.T) {
	t.Parallel()

	result := &models.ScanResult{Dish: "Soup"}
	for _, st := range []State{StateIdle, StateCaptureBefore, StateSelectDish, StateCaptureAfter, StateResult} {
		s := Session{State: st, Dish: "Soup"}
		got, err := s.Complete(result)
		assert.ErrorIs(t, err, ErrInvalidTransition, st.String())
		assert.Equal(t, s, got)
	}

	got, err := Session{State: StateAnalyzing, Dish: "Soup"}.Complete(result)
	require.NoError(t, err)
	assert.Equal(t, StateResult, got.State)
	assert.Same(t, result, got.Result)
}

func TestSession_DismissAndCancel(t *testing.T) {
	t.Parallel()

	done := Session{State: StateResult, Before: []byte("b"), After: []byte("a"), Dish: "Soup", Result: &models.ScanResult{}}
	idle, err := done.Dismiss()
	require.NoError(t, err)
	assert.Equal(t, Session{State: StateIdle}, idle)

	_, err = Session{State: StateCaptureAfter}.Dismiss()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	for _, st := range []State{StateIdle, StateCaptureBefore, StateSelectDish, StateCaptureAfter, StateResult} {
		s, err := Session{State: st, Before: []byte("b"), Dish: "Soup"}.Cancel()
		require.NoError(t, err)
		assert.Equal(t, Session{State: StateIdle}, s)
	}
}

func TestNewMenu(t *testing.T) {
	t.Parallel()

	_, err := NewMenu(nil)
	assert.Error(t, err)
	_, err = NewMenu([]string{"Soup", "Soup"})
	assert.Error(t, err)
	_, err = NewMenu([]string{"Soup", " "})
	assert.Error(t, err)

	m, err := NewMenu([]string{" Soup ", "Tacos"})
	require.NoError(t, err)
	assert.True(t, m.Contains("Soup"))
	assert.False(t, m.Contains("Pizza"))
	assert.Equal(t, []string{"Soup", "Tacos"}, m.Dishes())
}
