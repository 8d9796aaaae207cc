package postcall

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumivoice/recall/internal/store"
)

// Task is one queued post-call processing run.
type Task struct {
	Payload *Payload
	Raw     []byte
}

// Pool is the bounded worker pool that runs post-call processing off the
// webhook response path. A full queue rejects the task into the dead-letter
// store instead of growing without bound; failed runs are dead-lettered too.
type Pool struct {
	tasks       chan Task
	wg          sync.WaitGroup
	processor   *Processor
	deadLetters store.DeadLetterStore
	log         *slog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(processor *Processor, deadLetters store.DeadLetterStore, workers, queueSize int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 8
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if log == nil {
		log = slog.Default()
	}

	p := &Pool{
		tasks:       make(chan Task, queueSize),
		processor:   processor,
		deadLetters: deadLetters,
		log:         log,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Enqueue submits a task without blocking. Returns false when the queue is
// full or the pool is stopped; the payload is dead-lettered in that case.
func (p *Pool) Enqueue(task Task) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.deadLetter(task, "pool stopped")
		return false
	}

	select {
	case p.tasks <- task:
		p.mu.Unlock()
		return true
	default:
		p.mu.Unlock()
		p.log.Error("post-call queue full, rejecting task",
			"conversation_id", task.Payload.Data.ConversationID)
		p.deadLetter(task, "queue full")
		return false
	}
}

// Stop drains the queue and waits for in-flight runs to finish. In-flight
// tasks are never cancelled; they run to natural completion.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("post-call processing panicked",
				"conversation_id", task.Payload.Data.ConversationID, "panic", r)
			p.deadLetter(task, fmt.Sprintf("panic: %v", r))
		}
	}()

	start := time.Now()
	if err := p.processor.Process(context.Background(), task.Payload, task.Raw); err != nil {
		p.log.Error("post-call processing finished with failures",
			"conversation_id", task.Payload.Data.ConversationID,
			"duration", time.Since(start), "error", err)
		p.deadLetter(task, err.Error())
		return
	}

	p.log.Info("post-call processing complete",
		"conversation_id", task.Payload.Data.ConversationID,
		"duration", time.Since(start))
}

func (p *Pool) deadLetter(task Task, reason string) {
	if p.deadLetters == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dl := &store.DeadLetter{
		ID:             uuid.NewString(),
		ConversationID: task.Payload.Data.ConversationID,
		Payload:        task.Raw,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.deadLetters.Insert(ctx, dl); err != nil {
		p.log.Error("dead-letter write failed",
			"conversation_id", dl.ConversationID, "reason", reason, "error", err)
	}
}
