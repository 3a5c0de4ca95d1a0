package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"connectly/internal/queue"
)

const (
	DefaultWorkerCount  = 2
	DefaultBatchSize    = 10
	DefaultBlockTimeout = 5 * time.Second

	// readRetryDelay is the pause after a failed XREADGROUP.
	readRetryDelay = time.Second
)

// EventHandler applies a single feed event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.FeedEvent) error
}

// ManagerConfig configures the worker pool. Zero values take the defaults.
type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration

	Stream string
	Group  string
	// ConsumerPrefix keeps consumer names unique across replicas sharing
	// the group. Defaults to the hostname.
	ConsumerPrefix string
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = DefaultBlockTimeout
	}
	if c.Stream == "" {
		c.Stream = queue.StreamFeed
	}
	if c.Group == "" {
		c.Group = queue.ConsumerGroupFeed
	}
	if c.ConsumerPrefix == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "connectly"
		}
		c.ConsumerPrefix = host
	}
	return c
}

// Manager runs a fixed pool of stream consumers. Each worker replays what was
// delivered to it but never acknowledged, then reads new entries until Stop.
type Manager struct {
	consumer queue.Consumer
	handler  EventHandler
	cfg      ManagerConfig

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig) *Manager {
	return &Manager{
		consumer: consumer,
		handler:  handler,
		cfg:      cfg.withDefaults(),
	}
}

// Start creates the consumer group if needed and launches the workers.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, m.cfg.Stream, m.cfg.Group); err != nil {
		m.cancel()
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	log.Printf("[Manager] Starting %d workers for stream=%s group=%s",
		m.cfg.WorkerCount, m.cfg.Stream, m.cfg.Group)

	for i := 1; i <= m.cfg.WorkerCount; i++ {
		w := &feedWorker{
			id:   i,
			name: fmt.Sprintf("%s-worker-%d", m.cfg.ConsumerPrefix, i),
			m:    m,
		}
		m.wg.Add(1)
		go w.run()
	}
	return nil
}

// Stop cancels the workers and waits for them. Safe on a nil Manager.
func (m *Manager) Stop() {
	if m == nil || m.cancel == nil {
		return
	}
	log.Printf("[Manager] Stopping workers...")
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

type feedWorker struct {
	id   int
	name string
	m    *Manager
}

func (w *feedWorker) logf(format string, args ...interface{}) {
	log.Printf("[Worker-%d] "+format, append([]interface{}{w.id}, args...)...)
}

func (w *feedWorker) run() {
	defer w.m.wg.Done()
	ctx, cfg := w.m.ctx, w.m.cfg

	w.logf("Started (consumer=%s)", w.name)

	for ctx.Err() == nil {
		batch, err := w.m.consumer.ReadPending(ctx, cfg.Stream, cfg.Group, w.name, cfg.BatchSize)
		if err != nil {
			w.logf("Error reading pending: %v", err)
			break
		}
		if len(batch) == 0 {
			break
		}
		w.logf("Replaying %d pending messages", len(batch))
		w.apply(batch)
	}

	for ctx.Err() == nil {
		batch, err := w.m.consumer.Read(ctx, cfg.Stream, cfg.Group, w.name, cfg.BatchSize, cfg.BlockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.logf("Error reading: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(readRetryDelay):
			}
			continue
		}
		w.apply(batch)
	}

	w.logf("Shutting down")
}

// apply runs the handler over a batch and acknowledges the whole batch with
// one XACK. Rejected events are acknowledged too, so a bad entry is never
// redelivered.
func (w *feedWorker) apply(batch []queue.Message) {
	if len(batch) == 0 {
		return
	}

	ids := make([]string, 0, len(batch))
	for _, msg := range batch {
		if err := w.m.handler.HandleEvent(w.m.ctx, msg.Event); err != nil {
			w.logf("Handler error msgID=%s type=%s: %v", msg.ID, msg.Event.Type, err)
		}
		ids = append(ids, msg.ID)
	}

	if err := w.m.consumer.Ack(w.m.ctx, w.m.cfg.Stream, w.m.cfg.Group, ids...); err != nil {
		w.logf("ACK error ids=%v: %v", ids, err)
	}
}
