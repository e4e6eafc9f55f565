package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/roamsim/attribution-service/internal/models"
)

// ClickRecorder is the sink a dispatcher drains into.
type ClickRecorder interface {
	RecordClick(ctx context.Context, event models.ClickEvent) error
}

// Dispatcher fans click events out to a small worker pool over a bounded
// queue. Track never blocks: when the queue is full the event is dropped.
// Failures stay inside the pool; callers never see them.
type Dispatcher struct {
	queue chan models.ClickEvent
	repo  ClickRecorder
	wg    sync.WaitGroup

	closeOnce sync.Once
}

func NewDispatcher(repo ClickRecorder, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &Dispatcher{
		queue: make(chan models.ClickEvent, queueSize),
		repo:  repo,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Track enqueues an event without blocking the caller.
func (d *Dispatcher) Track(event models.ClickEvent) {
	select {
	case d.queue <- event:
	default:
		log.Printf("tracker: queue full, dropping click %s", event.Identifier)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.repo.RecordClick(ctx, event); err != nil {
			log.Printf("tracker: record click %s: %v", event.Identifier, err)
		}
		cancel()
	}
}

// Close drains the queue and stops the workers. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}
