package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"

	"github.com/DivEden/DGB/internal/config"
)

type Storage interface {
	Download(ctx context.Context, key string) ([]byte, string, error)
	UploadWithHook(ctx context.Context, key, contentType string, payload []byte, onSuccess func()) error
}

// Worker consumes archival jobs from a Redis Streams consumer group and
// copies each staged object into its archival location.
type Worker struct {
	rc      redis.UniversalClient
	cfg     config.ArchiveWorkerConfig
	storage Storage
}

// Init starts the background worker and returns the producer the upload
// path enqueues into.
func Init(ctx context.Context, rc redis.UniversalClient, cfg config.ArchiveWorkerConfig, storage Storage) *Producer {
	producer := NewProducer(rc, cfg.Stream, cfg.MaxLen)
	worker := NewWorker(rc, cfg, storage)

	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Printf("[archive-worker] stopped: %v", err)
		}
	}()

	return producer
}

func NewWorker(rc redis.UniversalClient, cfg config.ArchiveWorkerConfig, storage Storage) *Worker {
	return &Worker{
		rc:      rc,
		cfg:     cfg,
		storage: storage,
	}
}

func (w *Worker) EnsureGroup(ctx context.Context) error {
	// MkStream avoids the error Redis raises when creating a group on a
	// stream that has no messages yet.
	err := w.rc.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	// BUSYGROUP just means the group already exists.
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (w *Worker) Start(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("failed to ensure Redis group: %w", err)
	}

	log.Printf("[archive-worker] starting consumer group=%s stream=%s workers=%d",
		w.cfg.Group, w.cfg.Stream, w.cfg.Workers,
	)

	// Adopt pending messages orphaned by a crashed consumer.
	w.autoClaim(ctx)

	errCh := make(chan error, w.cfg.Workers)
	for i := 0; i < w.cfg.Workers; i++ {
		id := i
		go func() {
			err := w.loop(ctx)
			if err != nil {
				log.Printf("[archive-worker] worker #%d stopped with error: %v", id, err)
			}
			errCh <- err
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker loop exited with error: %w", err)
		}
		return nil
	}
}

// autoClaim takes ownership of messages that were delivered to another
// consumer but never acknowledged, so jobs survive worker crashes.
func (w *Worker) autoClaim(ctx context.Context) {
	next := "0-0"

	// Messages still being handled by a slow worker must not be stolen, so
	// the idle threshold scales with the block timeout.
	minIdle := 30 * time.Second
	if w.cfg.BlockTimeout > 0 {
		if t := w.cfg.BlockTimeout * 6 * time.Second; t > minIdle {
			minIdle = t
		}
	}

	for {
		msgs, start, err := w.rc.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   w.cfg.Stream,
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			MinIdle:  minIdle,
			Start:    next,
			Count:    100,
		}).Result()
		if err != nil || len(msgs) == 0 {
			return
		}
		next = start
	}
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		// Delivered messages sit in the group's pending list until the
		// deferred XACK in handle(); a crash before that leaves them for
		// autoClaim on the next start.
		streams, err := w.rc.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			Streams:  []string{w.cfg.Stream, ">"},
			Count:    1,
			Block:    w.cfg.BlockTimeout * time.Second,
		}).Result()
		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				_ = w.handle(ctx, m)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, m redis.XMessage) error {
	defer func() {
		_ = w.rc.XAck(ctx, w.cfg.Stream, w.cfg.Group, m.ID).Err()
	}()

	raw, ok := m.Values["payload"].(string)
	if !ok {
		sentry.CaptureMessage(fmt.Sprintf("archive job %s has no payload", m.ID))
		return nil
	}
	var job ArchiveJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		sentry.CaptureException(fmt.Errorf("archive job %s: %w", m.ID, err))
		return nil
	}
	attempt := toInt(m.Values["attempt"])

	if err := w.process(ctx, job); err != nil {
		if attempt+1 >= w.cfg.MaxAttempts {
			sentry.CaptureException(fmt.Errorf("archive job for %s dropped after %d attempts: %w",
				job.ObjectKey, attempt+1, err))
			return nil
		}
		// simple exponential backoff requeue
		backoff := (w.cfg.BackoffBase << attempt) * time.Second
		time.AfterFunc(backoff, func() {
			_ = w.rc.XAdd(context.Background(), &redis.XAddArgs{
				Stream: w.cfg.Stream,
				MaxLen: w.cfg.MaxLen,
				Values: map[string]any{
					"payload": raw,
					"attempt": attempt + 1,
				},
			}).Err()
		})
		return err
	}
	return nil
}

func (w *Worker) process(ctx context.Context, job ArchiveJob) error {
	data, contentType, err := w.storage.Download(ctx, job.ObjectKey)
	if err != nil {
		return fmt.Errorf("download %s: %w", job.ObjectKey, err)
	}
	if job.ContentType != "" {
		contentType = job.ContentType
	}

	if err := w.storage.UploadWithHook(ctx, job.ArchiveKey, contentType, data, nil); err != nil {
		return fmt.Errorf("archive %s: %w", job.ArchiveKey, err)
	}
	return nil
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case string:
		var x int
		fmt.Sscanf(t, "%d", &x)
		return x
	default:
		return 0
	}
}
