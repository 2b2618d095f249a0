// Package estimator compares before/after tray photos and produces a waste
// ratio.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"ecodining/internal/vision"
)

const (
	// MinBeforeFood is the food pixel count the before photo needs for the
	// pixel comparison to be trusted.
	MinBeforeFood = 100
	MaxRatio      = 0.85
	FallbackMin   = 0.05
	FallbackSpan  = 0.40
)

// RandomSource supplies uniform samples in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// FoodCounter turns an encoded photo into a food pixel count.
type FoodCounter func(data []byte) (int, error)

type Estimate struct {
	Ratio      float64 `json:"ratio"`
	BeforeFood int     `json:"before_food"`
	AfterFood  int     `json:"after_food"`
	Fallback   bool    `json:"fallback"`
}

type Estimator struct {
	mu    sync.Mutex
	rng   RandomSource
	count FoodCounter
}

func New(rng RandomSource) *Estimator {
	return &Estimator{rng: rng, count: vision.FoodPixels}
}

// WithCounter replaces the pixel counter, mostly for tests that want to skip
// real photos.
func (e *Estimator) WithCounter(count FoodCounter) *Estimator {
	e.count = count
	return e
}

// Estimate decodes and classifies both photos concurrently and returns the
// waste ratio. Decode failures come back as *vision.DecodeError naming the
// offending photo; they never fall back to a random ratio.
func (e *Estimator) Estimate(ctx context.Context, before, after []byte) (*Estimate, error) {
	var beforeFood, afterFood int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.countSource(gctx, "before", before)
		beforeFood = n
		return err
	})
	g.Go(func() error {
		n, err := e.countSource(gctx, "after", after)
		afterFood = n
		return err
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waste estimation interrupted: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, err
		}
	}

	ratio, fallback := e.ratio(beforeFood, afterFood)
	return &Estimate{
		Ratio:      ratio,
		BeforeFood: beforeFood,
		AfterFood:  afterFood,
		Fallback:   fallback,
	}, nil
}

func (e *Estimator) countSource(ctx context.Context, source string, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := e.count(data)
	if err != nil {
		var de *vision.DecodeError
		if errors.As(err, &de) {
			return 0, &vision.DecodeError{Source: source, Err: de.Err}
		}
		return 0, &vision.DecodeError{Source: source, Err: err}
	}
	return n, nil
}

func (e *Estimator) ratio(beforeFood, afterFood int) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return RatioFromCounts(beforeFood, afterFood, e.rng)
}

// RatioFromCounts applies the pixel-difference heuristic. When the before
// photo has too little food signal a placeholder ratio in
// [FallbackMin, FallbackMin+FallbackSpan] is drawn from rng and the second
// return value is true. The result is always within [0, MaxRatio].
func RatioFromCounts(beforeFood, afterFood int, rng RandomSource) (float64, bool) {
	var ratio float64
	fallback := beforeFood <= MinBeforeFood
	if fallback {
		ratio = rng.Float64()*FallbackSpan + FallbackMin
	} else {
		ratio = max(0, float64(beforeFood-afterFood)/float64(beforeFood))
	}
	return Clamp(ratio), fallback
}

func Clamp(ratio float64) float64 {
	return max(0, min(MaxRatio, ratio))
}
