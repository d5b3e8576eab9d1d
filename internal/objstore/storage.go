package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	conf "github.com/DivEden/DGB/internal/config"
)

var ErrQueueFull = errors.New("upload queue is full")

type uploadReq struct {
	ctx         context.Context
	key         string
	contentType string
	payload     []byte

	onSuccess func()
}

// Store is an S3-compatible object store with an asynchronous upload worker
// pool. Uploads are queued and retried with jittered backoff; downloads are
// synchronous.
type Store struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKeyID    string
	SecretKey      string
	Workers        int
	QueueSize      int
	MaxRetries     int
	RetryBaseDelay time.Duration

	queue chan uploadReq
	wg    sync.WaitGroup

	S3Client *s3.Client
	Uploader *manager.Uploader
}

func NewStore(cfg *conf.StorageConfig) (*Store, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	st := &Store{
		Bucket:         cfg.BucketName,
		Region:         region,
		Endpoint:       cfg.Endpoint,
		AccessKeyID:    cfg.AccessKeyID,
		SecretKey:      cfg.SecretKey,
		Workers:        8,
		QueueSize:      1000,
		MaxRetries:     3,
		RetryBaseDelay: 300 * time.Millisecond,
	}
	if err := st.run(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) run() error {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AccessKeyID, s.SecretKey, "",
		)),
		config.WithRegion(s.Region),
	)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	s.S3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
		}
		o.UsePathStyle = true
	})
	s.Uploader = manager.NewUploader(s.S3Client)

	s.queue = make(chan uploadReq, s.QueueSize)
	for i := 0; i < s.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	log.Printf("[objstore] client + worker pool initialized (bucket=%s)", s.Bucket)
	return nil
}

// Close waits for all queued uploads to drain.
func (s *Store) Close() {
	close(s.queue)
	s.wg.Wait()
}

// UploadWithHook queues an upload without blocking; onSuccess runs after the
// object has landed. Returns ErrQueueFull when the queue is saturated.
func (s *Store) UploadWithHook(ctx context.Context, key string, contentType string, payload []byte, onSuccess func()) error {
	req := uploadReq{ctx: ctx, key: key, contentType: contentType, payload: payload, onSuccess: onSuccess}
	select {
	case s.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Upload puts an object synchronously, bypassing the queue. Used where the
// caller needs the object in place before answering, e.g. the batch ZIP a
// download token is about to point at.
func (s *Store) Upload(ctx context.Context, key string, contentType string, payload []byte) error {
	_, err := s.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %q: %w", key, err)
	}
	return nil
}

func (s *Store) worker() {
	defer s.wg.Done()
	for req := range s.queue {
		var err error
		attempt := 0

		for {
			attempt++
			_, err = s.Uploader.Upload(req.ctx, &s3.PutObjectInput{
				Bucket:      aws.String(s.Bucket),
				Key:         aws.String(req.key),
				Body:        bytes.NewReader(req.payload),
				ContentType: aws.String(req.contentType),
			})
			if err == nil {
				if req.onSuccess != nil {
					req.onSuccess() // cheap enough so synchronous
				}
				break
			}

			if attempt > s.MaxRetries {
				log.Printf("[objstore] giving up on %s after %d attempts: %v", req.key, attempt, err)
				break
			}

			backoff := s.backoffDelay(attempt)
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-req.ctx.Done():
				timer.Stop()
			}
			if req.ctx != nil && req.ctx.Err() != nil {
				log.Printf("[objstore] upload of %s abandoned: %v", req.key, req.ctx.Err())
				break
			}
		}
	}
}

func (s *Store) backoffDelay(attempt int) time.Duration {
	delay := s.RetryBaseDelay << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(delay)/5 + 1))
	return delay - delay/10 + jitter
}

// Download fetches an object and its content type.
func (s *Store) Download(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to download %q: %w", key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, "", fmt.Errorf("failed to read body for %q: %w", key, err)
	}

	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return buf.Bytes(), contentType, nil
}
