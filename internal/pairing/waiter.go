package pairing

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxAttempts = 30
	DefaultInterval    = time.Second
)

var ErrQRTimeout = errors.New("qr not generated after multiple attempts")

// QRSource is anything that may eventually hold a QR payload.
type QRSource interface {
	QRPayload() (string, bool)
}

// Waiter polls a QRSource at a fixed interval until a payload appears or the
// attempt budget runs out. The caller's goroutine parks between polls.
type Waiter struct {
	MaxAttempts int
	Interval    time.Duration

	// After defaults to time.After; tests swap in a fake clock.
	After func(time.Duration) <-chan time.Time
}

func NewWaiter(maxAttempts int, interval time.Duration) *Waiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Waiter{
		MaxAttempts: maxAttempts,
		Interval:    interval,
		After:       time.After,
	}
}

// Wait polls immediately and then once per interval. It returns ErrQRTimeout
// after MaxAttempts empty polls, so it sleeps at most MaxAttempts-1 intervals.
func (w *Waiter) Wait(ctx context.Context, src QRSource) (string, error) {
	after := w.After
	if after == nil {
		after = time.After
	}

	for attempt := 1; ; attempt++ {
		if payload, ok := src.QRPayload(); ok {
			return payload, nil
		}
		if attempt >= w.MaxAttempts {
			return "", ErrQRTimeout
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-after(w.Interval):
		}
	}
}
