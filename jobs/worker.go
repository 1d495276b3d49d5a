package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/logistica-inteligente/logistica/internal/auth"
)

// Worker wraps the Asynq server processing sync tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  []TaskHandler
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if len(cfg.Handlers) == 0 {
		return nil, errors.New("jobs: at least one handler is required")
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("jobs: worker not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueSyncUser enqueues a sync-user task for the session.
func (c *Client) EnqueueSyncUser(ctx context.Context, sess auth.Session) error {
	task, err := NewSyncUserTask(sess)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// QueueSyncer adapts the queue client to the controller's syncer contract,
// so SYNC_MODE=queue slots in without touching the login path.
type QueueSyncer struct {
	client *Client
}

// NewQueueSyncer constructs a QueueSyncer.
func NewQueueSyncer(client *Client) *QueueSyncer {
	return &QueueSyncer{client: client}
}

// SyncUser enqueues the session for background delivery. Enqueue failures
// are classified SyncFailed like any other sync error.
func (s *QueueSyncer) SyncUser(ctx context.Context, sess auth.Session) error {
	if err := s.client.EnqueueSyncUser(ctx, sess); err != nil {
		return auth.WrapError(auth.CodeSyncFailed, "enqueue sync task", err)
	}
	return nil
}

var _ auth.UserSyncer = (*QueueSyncer)(nil)
