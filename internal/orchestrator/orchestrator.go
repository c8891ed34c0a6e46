// Package orchestrator runs background tasks on a fixed pool of agents.
//
// Tasks are queued FIFO and claimed one at a time under a single mutex. Each
// agent runs the work function registered for the task's kind, records the
// terminal state on the task, and moves on. Subscribers receive a snapshot of
// every task after each state change on their own goroutine, so a slow or
// panicking listener never holds up an agent.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agentoven/agentdesk/pkg/models"
)

var tracer = otel.Tracer("agentdesk/orchestrator")

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrAlreadyStarted = errors.New("orchestrator already started")
)

// DefaultAgents is the pool size used when Config.Agents is not positive.
const DefaultAgents = 3

// Progress reports completion percentage for the running task. Values are
// clamped to 0..100 and decreases are ignored.
type Progress func(percent int)

// WorkFunc performs one task. The returned string becomes the task result.
type WorkFunc func(ctx context.Context, task models.BackgroundTask, progress Progress) (string, error)

// Handler binds a work function to a task kind.
type Handler struct {
	Kind string
	Work WorkFunc
}

// Config sizes the agent pool.
type Config struct {
	Agents int
}

// Orchestrator owns every task and agent record.
type Orchestrator struct {
	mu       sync.Mutex
	cond     *sync.Cond
	tasks    []*models.BackgroundTask // creation order
	index    map[string]*models.BackgroundTask
	queue    []string
	agents   []*models.Agent
	handlers map[string]WorkFunc

	subs    map[uint64]*subscriber
	nextSub uint64

	started  bool
	stopping bool
	wg       sync.WaitGroup
	now      func() time.Time
}

// New builds an orchestrator with cfg.Agents idle agents. Nothing runs until
// Start is called; tasks queued before that stay pending.
func New(cfg Config, handlers ...Handler) *Orchestrator {
	n := cfg.Agents
	if n <= 0 {
		n = DefaultAgents
	}
	o := &Orchestrator{
		index:    make(map[string]*models.BackgroundTask),
		handlers: make(map[string]WorkFunc),
		subs:     make(map[uint64]*subscriber),
		now:      func() time.Time { return time.Now().UTC() },
	}
	o.cond = sync.NewCond(&o.mu)
	for i := 1; i <= n; i++ {
		o.agents = append(o.agents, &models.Agent{
			ID:          fmt.Sprintf("agent-%d", i),
			DisplayName: fmt.Sprintf("Agent %d", i),
			Status:      models.AgentIdle,
		})
	}
	for _, h := range handlers {
		o.handlers[h.Kind] = h.Work
	}
	return o
}

// Handle registers or replaces the work function for a kind.
func (o *Orchestrator) Handle(kind string, fn WorkFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[kind] = fn
}

// Start launches one loop per agent. Work functions receive a context that
// carries ctx's values but is never cancelled; in-flight tasks always run to
// completion.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return ErrAlreadyStarted
	}
	o.started = true

	workCtx := context.WithoutCancel(ctx)
	for _, a := range o.agents {
		o.wg.Add(1)
		go o.runAgent(workCtx, a)
	}
	log.Info().Int("agents", len(o.agents)).Msg("Background orchestrator started")
	return nil
}

// Stop prevents agents from claiming further tasks and waits for in-flight
// tasks to finish, or for ctx to expire. Pending tasks stay pending.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	o.stopping = true
	o.cond.Broadcast()
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Msg("Background orchestrator stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop orchestrator: %w", ctx.Err())
	}
}

// QueueTask creates a pending task and returns its id without blocking.
func (o *Orchestrator) QueueTask(kind, description string) string {
	task := &models.BackgroundTask{
		ID:          uuid.New().String(),
		Kind:        kind,
		Description: description,
		Status:      models.TaskPending,
		CreatedAt:   o.now(),
	}

	o.mu.Lock()
	o.tasks = append(o.tasks, task)
	o.index[task.ID] = task
	o.queue = append(o.queue, task.ID)
	o.publishLocked()
	o.cond.Signal()
	o.mu.Unlock()

	log.Debug().Str("task_id", task.ID).Str("kind", kind).Msg("Task queued")
	return task.ID
}

// GetAllTasks returns a snapshot of every task in creation order.
func (o *Orchestrator) GetAllTasks() []models.BackgroundTask {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// GetTask returns a snapshot of one task.
func (o *Orchestrator) GetTask(id string) (models.BackgroundTask, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.index[id]
	if !ok {
		return models.BackgroundTask{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.Clone(), nil
}

// GetAgents returns a snapshot of the agent pool.
func (o *Orchestrator) GetAgents() []models.Agent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Agent, len(o.agents))
	for i, a := range o.agents {
		out[i] = *a
	}
	return out
}

// ClearCompletedTasks removes completed and failed tasks and returns how
// many were removed. Pending and running tasks are untouched.
func (o *Orchestrator) ClearCompletedTasks() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	kept := o.tasks[:0]
	removed := 0
	for _, t := range o.tasks {
		if t.Status.Terminal() {
			delete(o.index, t.ID)
			removed++
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(o.tasks); i++ {
		o.tasks[i] = nil
	}
	o.tasks = kept

	if removed > 0 {
		o.publishLocked()
	}
	return removed
}

func (o *Orchestrator) snapshotLocked() []models.BackgroundTask {
	out := make([]models.BackgroundTask, len(o.tasks))
	for i, t := range o.tasks {
		out[i] = t.Clone()
	}
	return out
}

// ── Agent Loop ──────────────────────────────────────────────

func (o *Orchestrator) runAgent(ctx context.Context, agent *models.Agent) {
	defer o.wg.Done()
	for {
		o.mu.Lock()
		for len(o.queue) == 0 && !o.stopping {
			o.cond.Wait()
		}
		if o.stopping {
			o.mu.Unlock()
			return
		}

		id := o.queue[0]
		o.queue = o.queue[1:]
		task := o.index[id]

		started := o.now()
		task.Status = models.TaskRunning
		task.StartedAt = &started
		task.AgentID = agent.ID
		agent.Status = models.AgentBusy
		agent.CurrentTaskID = id
		work := o.handlers[task.Kind]
		snapshot := task.Clone()
		o.publishLocked()
		o.mu.Unlock()

		result, err := o.execute(ctx, agent.ID, work, snapshot, o.progressFor(task))

		o.mu.Lock()
		finished := o.now()
		task.FinishedAt = &finished
		if err != nil {
			task.Status = models.TaskFailed
			task.Error = err.Error()
			if task.Error == "" {
				task.Error = "task failed"
			}
		} else {
			task.Status = models.TaskCompleted
			task.Progress = 100
			task.Result = result
			if task.Result == "" {
				task.Result = "done"
			}
		}
		agent.TasksCompletedCount++
		agent.Status = models.AgentIdle
		agent.CurrentTaskID = ""
		o.publishLocked()
		o.mu.Unlock()

		ev := log.Info()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("task_id", id).
			Str("kind", snapshot.Kind).
			Str("agent", agent.ID).
			Dur("elapsed", finished.Sub(started)).
			Msg("Task finished")
	}
}

// execute runs work and turns panics and missing handlers into errors.
func (o *Orchestrator) execute(ctx context.Context, agentID string, work WorkFunc, task models.BackgroundTask, progress Progress) (result string, err error) {
	ctx, span := tracer.Start(ctx, "orchestrator.task")
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.kind", task.Kind),
		attribute.String("agent.id", agentID),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("task_id", task.ID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Task panicked")
			result, err = "", fmt.Errorf("task panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if work == nil {
		return "", fmt.Errorf("no handler for kind %q", task.Kind)
	}
	return work(ctx, task, progress)
}

func (o *Orchestrator) progressFor(task *models.BackgroundTask) Progress {
	return func(percent int) {
		percent = max(0, min(percent, 100))
		o.mu.Lock()
		defer o.mu.Unlock()
		if task.Status != models.TaskRunning || percent <= task.Progress {
			return
		}
		task.Progress = percent
		o.publishLocked()
	}
}
