// Package timectrl drives a transit clock: a moment in sky time that advances
// by a fixed step on every tick and notifies listeners with the new instant.
package timectrl

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Clock is the read side of a TimeController.
type Clock interface {
	// Now returns the current transit instant.
	Now() time.Time
}

// Mode describes how the TimeController paces its ticks.
type Mode int

const (
	// RealTime waits Tick of wall-clock time between steps.
	RealTime Mode = iota
	// Accelerated steps as quickly as listeners return.
	Accelerated
)

// Listener is invoked with the instant reached on every tick. A non-nil error
// stops the controller.
type Listener func(ctx context.Context, at time.Time) error

// TimeController advances transit time and notifies registered listeners.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	// Tick is the wall-clock pause between steps in RealTime mode.
	Tick time.Duration
	// Step is how far transit time advances per tick.
	Step time.Duration
	Mode Mode

	currentTime time.Time
	listeners   []Listener
}

// NewTimeController constructs a controller positioned at start.
func NewTimeController(start time.Time, tick, step time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start.UTC(),
		Tick:        tick,
		Step:        step,
		Mode:        mode,
		currentTime: start.UTC(),
	}
}

// Now returns the current transit instant. Implements Clock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves the controller to t without notifying listeners.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	tc.currentTime = t.UTC()
	tc.mu.Unlock()
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn Listener) {
	if fn == nil {
		return
	}
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Run notifies listeners at StartTime and then after each of steps advances.
// steps <= 0 runs until ctx is done. Cancellation returns nil; a listener
// error is returned as-is.
func (tc *TimeController) Run(ctx context.Context, steps int) error {
	if tc.Step == 0 {
		return errors.New("timectrl: step must be non-zero")
	}
	if tc.Mode == RealTime && tc.Tick <= 0 {
		return errors.New("timectrl: real-time mode needs a positive tick")
	}

	tc.mu.Lock()
	at := tc.StartTime
	tc.currentTime = at
	tc.mu.Unlock()

	if err := tc.notify(ctx, at); err != nil {
		return err
	}

	var tick <-chan time.Time
	if tc.Mode == RealTime {
		ticker := time.NewTicker(tc.Tick)
		defer ticker.Stop()
		tick = ticker.C
	}

	for i := 0; steps <= 0 || i < steps; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		at = at.Add(tc.Step)
		tc.SetTime(at)
		if err := tc.notify(ctx, at); err != nil {
			return err
		}
	}
	return nil
}

// Start runs the controller in a separate goroutine. The returned channel
// yields Run's result and is then closed.
func (tc *TimeController) Start(ctx context.Context, steps int) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- tc.Run(ctx, steps)
	}()
	return done
}

func (tc *TimeController) notify(ctx context.Context, at time.Time) error {
	tc.mu.RLock()
	listeners := append([]Listener(nil), tc.listeners...)
	tc.mu.RUnlock()

	for _, fn := range listeners {
		if err := fn(ctx, at); err != nil {
			return err
		}
	}
	return nil
}
