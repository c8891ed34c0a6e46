package orchestrator

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/agentdesk/pkg/models"
)

// ── Listeners ───────────────────────────────────────────────

// Listener receives the full task list after every state change.
type Listener func(tasks []models.BackgroundTask)

// subscriber delivers notifications in publish order on its own goroutine.
// The mailbox is unbounded so publishing never blocks.
type subscriber struct {
	fn Listener

	mu      sync.Mutex
	mailbox [][]models.BackgroundTask
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newSubscriber(fn Listener) *subscriber {
	s := &subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *subscriber) post(tasks []models.BackgroundTask) {
	s.mu.Lock()
	s.mailbox = append(s.mailbox, tasks)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) loop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.mailbox) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.mailbox[0]
			s.mailbox[0] = nil
			s.mailbox = s.mailbox[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.deliver(next)
		}
	}
}

func (s *subscriber) deliver(tasks []models.BackgroundTask) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Task listener panicked")
		}
	}()
	s.fn(tasks)
}

// AddListener subscribes fn to task updates. The returned function
// unsubscribes; notifications not yet delivered are dropped.
func (o *Orchestrator) AddListener(fn Listener) (unsubscribe func()) {
	s := newSubscriber(fn)

	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = s
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
		s.close()
	}
}

// publishLocked posts a snapshot to every subscriber. Callers hold o.mu,
// which fixes a single global publish order.
func (o *Orchestrator) publishLocked() {
	if len(o.subs) == 0 {
		return
	}
	for _, s := range o.subs {
		s.post(o.snapshotLocked())
	}
}
