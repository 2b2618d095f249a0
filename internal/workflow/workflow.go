package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ecodining/internal/estimator"
	"ecodining/internal/ledger"
	"ecodining/internal/models"
	"ecodining/internal/scoring"
	"ecodining/internal/vision"
)

const timeLabelLayout = "03:04 PM"

type Estimator interface {
	Estimate(ctx context.Context, before, after []byte) (*estimator.Estimate, error)
}

// Archive receives every committed scan. Failures are logged and ignored.
type Archive interface {
	SaveScan(scan *models.ScanRecord) error
}

type Options struct {
	SiteID         string
	AnalyzeTimeout time.Duration
	Archive        Archive
	Now            func() time.Time
}

// Snapshot is what the presentation layer renders for the current scan.
type Snapshot struct {
	State     State              `json:"state"`
	HasBefore bool               `json:"has_before"`
	HasAfter  bool               `json:"has_after"`
	Dish      string             `json:"dish,omitempty"`
	Busy      bool               `json:"busy"`
	Result    *models.ScanResult `json:"result,omitempty"`
	LastError string             `json:"last_error,omitempty"`
}

// Workflow drives a single patron's scans. Methods are safe for concurrent
// use; only one analysis runs at a time.
type Workflow struct {
	mu      sync.Mutex
	session Session
	lastErr error

	menu      *Menu
	estimator Estimator
	ledger    *ledger.Ledger
	opts      Options
}

func New(menu *Menu, est Estimator, l *ledger.Ledger, opts Options) *Workflow {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Workflow{
		menu:      menu,
		estimator: est,
		ledger:    l,
		opts:      opts,
	}
}

func (w *Workflow) apply(fn func(Session) (Session, error)) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := fn(w.session)
	w.session = next
	w.lastErr = err
	return w.snapshotLocked(), err
}

func (w *Workflow) Start() (Snapshot, error) {
	return w.apply(Session.Start)
}

func (w *Workflow) CaptureBefore(data []byte) (Snapshot, error) {
	return w.apply(func(s Session) (Session, error) { return s.CaptureBefore(data) })
}

func (w *Workflow) Next() (Snapshot, error) {
	return w.apply(Session.Next)
}

func (w *Workflow) SelectDish(dish string) (Snapshot, error) {
	return w.apply(func(s Session) (Session, error) { return s.SelectDish(dish, w.menu) })
}

func (w *Workflow) CaptureAfter(data []byte) (Snapshot, error) {
	return w.apply(func(s Session) (Session, error) { return s.CaptureAfter(data) })
}

func (w *Workflow) Dismiss() (Snapshot, error) {
	return w.apply(Session.Dismiss)
}

func (w *Workflow) Cancel() (Snapshot, error) {
	return w.apply(Session.Cancel)
}

// Analyze estimates waste for the held photos, scores it and commits the
// scan to the ledger. Calling it again on a finished scan returns the same
// result; calling it while an estimate is running returns
// ErrAlreadyAnalyzing without starting a second one.
//
// Cancelling ctx does not stop a running estimate. Only
// Options.AnalyzeTimeout bounds it.
func (w *Workflow) Analyze(ctx context.Context) (*models.ScanResult, error) {
	w.mu.Lock()
	if w.session.State == StateResult {
		result := copyResult(w.session.Result)
		w.mu.Unlock()
		return result, nil
	}
	next, err := w.session.BeginAnalysis()
	if err != nil {
		if !errors.Is(err, ErrAlreadyAnalyzing) {
			w.lastErr = err
		}
		w.mu.Unlock()
		return nil, err
	}
	w.session = next
	w.lastErr = nil
	before, after, dish := next.Before, next.After, next.Dish
	w.mu.Unlock()

	actx := context.WithoutCancel(ctx)
	if w.opts.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(actx, w.opts.AnalyzeTimeout)
		defer cancel()
	}

	est, err := w.estimator.Estimate(actx, before, after)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		var de *vision.DecodeError
		if !errors.As(err, &de) && errors.Is(actx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrAnalysisTimeout, err)
		}
		log.Printf("Scan analysis failed for %s: %v", dish, err)
		w.session = w.session.Fail(err)
		w.lastErr = err
		return nil, err
	}

	result := scoring.Evaluate(dish, est.Ratio)
	completed, err := w.session.Complete(result)
	if err != nil {
		log.Printf("Warning: discarding result for %s: %v", dish, err)
		w.lastErr = err
		return nil, err
	}
	w.session = completed
	w.commit(result)
	return copyResult(result), nil
}

// commit credits points and records history in one ledger call, then
// archives the scan. Must be called with w.mu held.
func (w *Workflow) commit(result *models.ScanResult) {
	now := w.opts.Now()
	id := uuid.NewString()

	w.ledger.Commit(models.HistoryEntry{
		ID:         id,
		Dish:       result.Dish,
		WasteLevel: result.WasteLevel,
		TimeLabel:  now.Format(timeLabelLayout),
		Points:     result.Points,
	})

	if w.opts.Archive == nil {
		return
	}
	record := &models.ScanRecord{
		ID:         id,
		Timestamp:  now,
		SiteID:     w.opts.SiteID,
		Dish:       result.Dish,
		WasteRatio: roundRatio(result.WasteRatio),
		WasteLevel: result.WasteLevel,
		Points:     result.Points,
		Impact:     result.Impact,
	}
	if err := w.opts.Archive.SaveScan(record); err != nil {
		// The ledger stays authoritative; the archive only feeds reports.
		log.Printf("Warning: failed to archive scan %s: %v", id, err)
	}
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     w.session.State,
		HasBefore: len(w.session.Before) > 0,
		HasAfter:  len(w.session.After) > 0,
		Dish:      w.session.Dish,
		Busy:      w.session.State == StateAnalyzing,
		Result:    copyResult(w.session.Result),
	}
	if w.lastErr != nil {
		snap.LastError = w.lastErr.Error()
	}
	return snap
}

func (w *Workflow) Menu() *Menu {
	return w.menu
}

func (w *Workflow) Ledger() *ledger.Ledger {
	return w.ledger
}

func copyResult(r *models.ScanResult) *models.ScanResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Tips = append([]string{}, r.Tips...)
	return &c
}

func roundRatio(r float64) float64 {
	return decimal.NewFromFloat(r).Round(3).InexactFloat64()
}
