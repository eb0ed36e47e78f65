package history

import (
	"context"
	"log/slog"

	"github.com/ivghost/ragtool/internal/domain/analysis"
	"github.com/ivghost/ragtool/internal/domain/nutrition"
	"github.com/ivghost/ragtool/internal/infra/eventbus"
)

// Recorder persists run and chunk events published on the bus.
type Recorder struct {
	store  *Store
	bus    eventbus.EventBus
	runs   <-chan eventbus.Event
	chunks <-chan eventbus.Event
	plans  <-chan eventbus.Event
	logger *slog.Logger
}

// NewRecorder subscribes to the run topics immediately, so events published
// after it returns are buffered until Start runs.
func NewRecorder(store *Store, bus eventbus.EventBus, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		store:  store,
		bus:    bus,
		runs:   bus.Subscribe(analysis.TopicRunCompleted),
		chunks: bus.Subscribe(analysis.TopicChunkCompleted),
		plans:  bus.Subscribe(nutrition.TopicPlanCompleted),
		logger: logger,
	}
}

// dropCounter is implemented by buses that count undelivered events.
type dropCounter interface {
	Dropped() int64
}

// Start consumes events until ctx is cancelled, then unsubscribes from the
// bus. Write errors are logged, and so are events the bus dropped because
// the recorder fell behind.
func (r *Recorder) Start(ctx context.Context) {
	defer r.unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-r.runs:
			if !ok {
				return
			}
			res, ok := evt.Payload.(analysis.Result)
			if !ok {
				continue
			}
			r.record(ctx, FromAnalysis(res))
		case evt, ok := <-r.plans:
			if !ok {
				return
			}
			plan, ok := evt.Payload.(nutrition.Plan)
			if !ok {
				continue
			}
			r.record(ctx, FromPlan(plan))
		case evt, ok := <-r.chunks:
			if !ok {
				return
			}
			ce, ok := evt.Payload.(analysis.ChunkEvent)
			if !ok {
				continue
			}
			err := r.store.RecordChunk(ctx, ce.RunID, ChunkOutcome{Index: ce.Index, Total: ce.Total, Status: ce.Status})
			if err != nil {
				r.logger.Warn("chunk outcome not recorded", "run", ce.RunID, "chunk", ce.Index, "error", err)
			}
		}
	}
}

func (r *Recorder) record(ctx context.Context, run Run) {
	if err := r.store.Record(ctx, run); err != nil {
		r.logger.Warn("run not recorded", "run", run.ID, "kind", run.Kind, "error", err)
		return
	}
	r.logger.Debug("run recorded", "run", run.ID, "kind", run.Kind, "status", run.Status)
}

func (r *Recorder) unsubscribe() {
	r.bus.Unsubscribe(analysis.TopicRunCompleted, r.runs)
	r.bus.Unsubscribe(analysis.TopicChunkCompleted, r.chunks)
	r.bus.Unsubscribe(nutrition.TopicPlanCompleted, r.plans)
	if dc, ok := r.bus.(dropCounter); ok {
		if n := dc.Dropped(); n > 0 {
			r.logger.Warn("events dropped before recording", "events_dropped", n)
		}
	}
}
