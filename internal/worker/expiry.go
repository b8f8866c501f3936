// Package worker contains background loops that run alongside the HTTP
// server.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/parksmart/parksmart-api/internal/reservation"
)

// ExpirySweeper periodically releases pending reservations whose
// 15-minute hold deadline has passed.  Expiry is data-driven (a
// timestamp comparison), not an in-process timer: any number of
// sweepers may run concurrently and the release stays idempotent, so a
// multi-instance deployment needs no coordination.
type ExpirySweeper struct {
	svc      *reservation.Service
	interval time.Duration
}

// NewExpirySweeper returns a sweeper running at the given interval.  A
// non-positive interval falls back to one minute.
func NewExpirySweeper(svc *reservation.Service, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{svc: svc, interval: interval}
}

// Run sweeps until the context is cancelled.  Sweep errors are logged
// and the loop keeps going; a transient database outage must not kill
// the sweeper.
func (w *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	log.Printf("expiry-sweeper: running every %s", w.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("expiry-sweeper: stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			n, err := w.svc.ExpireDue(ctx)
			if err != nil {
				log.Printf("expiry-sweeper: sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("expiry-sweeper: released %d expired holds", n)
			}
		}
	}
}
