package use_case

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/getsentry/sentry-go"

	"github.com/DivEden/DGB/internal/archive"
	"github.com/DivEden/DGB/internal/cache"
	"github.com/DivEden/DGB/internal/compress"
	"github.com/DivEden/DGB/internal/config"
	"github.com/DivEden/DGB/internal/entities"
	"github.com/DivEden/DGB/internal/queue"
	"github.com/DivEden/DGB/internal/transport/handler"
)

type Storage interface {
	InsertBatch(ctx context.Context, b entities.Batch, failures []entities.BatchFailure) (entities.Batch, error)
	GetBatch(ctx context.Context, id int64) (entities.Batch, []entities.BatchFailure, error)
	InsertTicket(ctx context.Context, t entities.Ticket) (entities.Ticket, error)
	ListTickets(ctx context.Context, limit int) ([]entities.Ticket, error)
}

type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, payload []byte) error
	UploadWithHook(ctx context.Context, key, contentType string, payload []byte, onSuccess func()) error
	Download(ctx context.Context, key string) ([]byte, string, error)
}

type StatusCache interface {
	StoreStatus(ctx context.Context, st cache.BatchStatus) error
	GetStatus(ctx context.Context, batchID int64) (cache.BatchStatus, error)
}

type TokenStore interface {
	Create(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
}

type ArchiveQueue interface {
	EnqueueArchive(ctx context.Context, job queue.ArchiveJob) error
}

const downloadTokenTTL = 24 * time.Hour

type useCase struct {
	storage  Storage
	objstore ObjectStore
	status   StatusCache
	tokens   TokenStore
	wqueue   ArchiveQueue
	cfg      config.CompressConfig
}

func New(storage Storage, objstore ObjectStore, status StatusCache, tokens TokenStore, wqueue ArchiveQueue, cfg config.CompressConfig) *useCase {
	return &useCase{
		storage:  storage,
		objstore: objstore,
		status:   status,
		tokens:   tokens,
		wqueue:   wqueue,
		cfg:      cfg,
	}
}

// CompressBatch runs the batch engine over the uploaded files, packages the
// results into a ZIP, stores it and optionally fans the images out into the
// archival hierarchy. Files are opened one at a time so only the in-flight
// items reside in memory.
func (c *useCase) CompressBatch(ctx context.Context, files []*multipart.FileHeader, params handler.CompressBatchParams) (entities.BatchSummary, []byte, error) {
	var summary entities.BatchSummary

	target := compress.Target{
		TargetBytes:    params.TargetKB * 1024,
		ToleranceBytes: params.ToleranceKB * 1024,
		MinQuality:     c.cfg.MinQuality,
		MinScale:       c.cfg.MinScale,
	}
	if target.ToleranceBytes == 0 && c.cfg.DefaultTolerancePct > 0 {
		target.ToleranceBytes = target.TargetBytes * c.cfg.DefaultTolerancePct / 100
	}

	mode, err := compress.ParseNamingMode(params.Mode)
	if err != nil {
		return summary, nil, err
	}
	var namer *compress.Namer
	switch mode {
	case compress.Grouped:
		namer = compress.GroupedNamer(params.GroupLabel)
	case compress.Individual:
		namer = compress.IndividualNamer(params.CustomNames)
	default:
		namer = compress.KeepOriginalNamer()
	}

	in := make(chan compress.SourceImage)
	done := make(chan struct{})
	defer close(done)

	out, state, err := compress.Run(ctx, in, target, namer, compress.Options{
		Workers:  c.cfg.Workers,
		MaxItems: c.cfg.MaxItems,
	})
	if err != nil {
		return summary, nil, err
	}

	// Producer: one file at a time. The done channel unblocks it when the
	// engine truncates the batch and stops pulling.
	go func() {
		defer close(in)
		for _, fh := range files {
			data, err := readFile(fh)
			if err != nil {
				// Feed unreadable uploads through anyway; the engine
				// records them as per-item failures.
				data = nil
			}
			select {
			case in <- compress.SourceImage{Name: fh.Filename, Data: data}:
			case <-done:
				return
			}
		}
	}()

	batchRef := fmt.Sprintf("batch-%d", time.Now().UnixNano())
	groupDir := params.GroupLabel
	if groupDir == "" {
		groupDir = "diverse"
	}

	var zipBuf bytes.Buffer
	zw := archive.NewWriter(&zipBuf)

	var totalOut int64
	for item := range out {
		if item.Err != nil {
			continue
		}
		res := item.Result
		totalOut += res.AchievedBytes

		if err := zw.Add(res.Name, res.Data); err != nil {
			return summary, nil, fmt.Errorf("package %s: %w", res.Name, err)
		}

		if params.Archive {
			if err := c.stageForArchive(ctx, batchRef, groupDir, res); err != nil {
				log.Printf("[use-case] stage %s for archive: %v", res.Name, err)
				sentry.CaptureException(fmt.Errorf("stage %s for archive: %w", res.Name, err))
			}
		}
	}
	if err := zw.Close(); err != nil {
		return summary, nil, fmt.Errorf("finalize archive: %w", err)
	}

	failures := state.Failures()
	b := entities.Batch{
		NamingMode:       params.Mode,
		TargetBytes:      target.TargetBytes,
		ToleranceBytes:   target.ToleranceBytes,
		ItemsProcessed:   state.Processed(),
		ItemsFailed:      len(failures),
		Truncated:        state.Truncated(),
		TotalInputBytes:  state.InputBytes(),
		TotalOutputBytes: totalOut,
		ZipKey:           fmt.Sprintf("batches/%s.zip", batchRef),
	}
	if params.GroupLabel != "" {
		b.GroupLabel = &params.GroupLabel
	}

	if err := c.objstore.Upload(ctx, b.ZipKey, "application/zip", zipBuf.Bytes()); err != nil {
		return summary, nil, fmt.Errorf("store batch archive: %w", err)
	}

	token, err := c.tokens.Create(ctx, b.ZipKey, downloadTokenTTL)
	if err != nil {
		return summary, nil, fmt.Errorf("issue download token: %w", err)
	}

	b, err = c.storage.InsertBatch(ctx, b, toEntityFailures(failures))
	if err != nil {
		return summary, nil, err
	}

	_ = c.status.StoreStatus(ctx, cache.BatchStatus{
		BatchID:       b.ID,
		State:         "done",
		ItemsTotal:    b.ItemsProcessed,
		ItemsDone:     b.ItemsProcessed - b.ItemsFailed,
		ItemsFailed:   b.ItemsFailed,
		Truncated:     b.Truncated,
		DownloadToken: token,
	})

	summary = entities.BatchSummary{
		Batch:         b,
		Failures:      toEntityFailures(failures),
		DownloadToken: token,
	}
	return summary, zipBuf.Bytes(), nil
}

// stageForArchive uploads one result to its staging key and, once that has
// landed, enqueues the copy into the archival hierarchy. The upload outlives
// the request, so it runs on a context detached from it.
func (c *useCase) stageForArchive(ctx context.Context, batchRef, groupDir string, res compress.Result) error {
	stagingKey := fmt.Sprintf("staging/%s/%s", batchRef, res.Name)
	archiveKey := fmt.Sprintf("arkiv/%s/%s", groupDir, res.Name)
	contentType := mimetype.Detect(res.Data).String()

	return c.objstore.UploadWithHook(context.WithoutCancel(ctx), stagingKey, contentType, res.Data, func() {
		err := c.wqueue.EnqueueArchive(context.Background(), queue.ArchiveJob{
			ObjectKey:   stagingKey,
			ArchiveKey:  archiveKey,
			ContentType: contentType,
		})
		if err != nil {
			log.Printf("[use-case] enqueue archive copy of %s: %v", stagingKey, err)
			sentry.CaptureException(fmt.Errorf("enqueue archive copy of %s: %w", stagingKey, err))
		}
	})
}

// BatchStatus reports progress for one batch, preferring the cache and
// falling back to the persisted record.
func (c *useCase) BatchStatus(ctx context.Context, batchID int64) (cache.BatchStatus, error) {
	if st, err := c.status.GetStatus(ctx, batchID); err == nil {
		return st, nil
	}

	b, _, err := c.storage.GetBatch(ctx, batchID)
	if err != nil {
		return cache.BatchStatus{}, err
	}
	return cache.BatchStatus{
		BatchID:     b.ID,
		State:       "done",
		ItemsTotal:  b.ItemsProcessed,
		ItemsDone:   b.ItemsProcessed - b.ItemsFailed,
		ItemsFailed: b.ItemsFailed,
		Truncated:   b.Truncated,
	}, nil
}

// DownloadArchive maps a download token back to the stored batch ZIP and
// fetches it.
func (c *useCase) DownloadArchive(ctx context.Context, token string) ([]byte, string, error) {
	key, err := c.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, "", err
	}
	return c.objstore.Download(ctx, key)
}

func (c *useCase) CreateTicket(ctx context.Context, params handler.TicketParams) (entities.Ticket, error) {
	t := entities.Ticket{
		Name:     params.Name,
		Category: params.Category,
		Message:  params.Message,
	}
	if params.Email != "" {
		t.Email = &params.Email
	}
	return c.storage.InsertTicket(ctx, t)
}

func (c *useCase) ListTickets(ctx context.Context, limit int) ([]entities.Ticket, error) {
	return c.storage.ListTickets(ctx, limit)
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func toEntityFailures(failures []compress.Failure) []entities.BatchFailure {
	out := make([]entities.BatchFailure, 0, len(failures))
	for _, f := range failures {
		out = append(out, entities.BatchFailure{
			ItemIndex: f.Index,
			FileName:  f.Name,
			Reason:    f.Reason.Error(),
		})
	}
	return out
}
