package pipeline

import (
	"context"
	"time"

	"github.com/pargar-ir/qanun-ingest/internal/core"
	"github.com/pargar-ir/qanun-ingest/internal/logger"
	"github.com/pargar-ir/qanun-ingest/internal/models"
)

const (
	queueSize       = 64
	processAttempts = 3
	retryBaseDelay  = time.Minute
)

type task struct {
	exprID string
}

// Scheduler decouples write paths from chunk processing. Services report
// save/delete events; the scheduler decides whether the event warrants a
// processing run and hands the expression to a background worker.
type Scheduler struct {
	store     core.Store
	processor *Processor
	log       *logger.Logger
	queue     chan task
}

func NewScheduler(store core.Store, processor *Processor, log *logger.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		processor: processor,
		log:       log,
		queue:     make(chan task, queueSize),
	}
}

// Start launches the worker goroutine. It drains the queue until ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-s.queue:
				s.run(ctx, t)
			}
		}
	}()
}

func (s *Scheduler) run(ctx context.Context, t task) {
	for attempt := 1; attempt <= processAttempts; attempt++ {
		_, err := s.processor.ProcessExpression(ctx, t.exprID)
		if err == nil {
			return
		}
		if attempt == processAttempts {
			s.log.Error("expression processing gave up",
				"expr_id", t.exprID, "attempts", processAttempts, "error", err)
			return
		}

		delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
		s.log.Warn("expression processing failed, retrying",
			"expr_id", t.exprID, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Scheduler) enqueue(exprID string) {
	select {
	case s.queue <- task{exprID: exprID}:
	default:
		s.log.Warn("processing queue full, dropping event", "expr_id", exprID)
	}
}

// UnitSaved schedules processing when a unit was created or its content
// changed. Metadata-only edits never trigger a run. Creates always schedule,
// even without content; the processor skips empty units itself.
func (s *Scheduler) UnitSaved(unit *models.LegalUnit, created, contentChanged bool) {
	if unit == nil || unit.ExprID == "" {
		return
	}
	if !created && !contentChanged {
		return
	}
	s.enqueue(unit.ExprID)
}

// ExpressionCreated schedules processing for a new expression that already
// has units attached.
func (s *Scheduler) ExpressionCreated(ctx context.Context, exprID string) {
	n, err := s.store.CountUnitsByExpression(ctx, exprID)
	if err != nil {
		s.log.Error("unit count lookup failed", "expr_id", exprID, "error", err)
		return
	}
	if n == 0 {
		return
	}
	s.enqueue(exprID)
}

// UnitDeleted records how many chunks the deleted unit leaves behind. The
// rows themselves are removed by the FK cascade; no processing run follows.
func (s *Scheduler) UnitDeleted(unitID string, chunkCount int) {
	s.log.Info("unit deleted", "unit_id", unitID, "chunks_cascaded", chunkCount)
}
