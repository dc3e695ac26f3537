package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/cache"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/config"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/services"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"

	_ "image/gif"
	_ "image/png"
)

// Task types.
const (
	TypeImageProcess = "image:process"
	TypeViewFlush    = "views:flush"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// NewImageProcessTask builds an image processing task for a freshly uploaded
// object key.
func NewImageProcessTask(listingID utils.SixID, s3Key string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImageTaskPayload{
		S3Key:     s3Key,
		ListingID: listingID.String(),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeImageProcess, payload, asynq.Queue("images")), nil
}

// NewViewFlushTask builds the periodic view-counter flush task.
func NewViewFlushTask() *asynq.Task {
	return asynq.NewTask(TypeViewFlush, nil, asynq.Queue("default"))
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks. It holds dependencies needed
// by task handlers.
type TaskProcessor struct {
	cfg            *config.Config
	listingService services.IListingService
	s3Client       *s3.Client
	rdb            *redis.Client
	taskClient     *asynq.Client
}

func NewTaskProcessor(
	cfg *config.Config,
	listingService services.IListingService,
	s3Client *s3.Client,
	rdb *redis.Client,
	taskClient *asynq.Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		listingService: listingService,
		s3Client:       s3Client,
		rdb:            rdb,
		taskClient:     taskClient,
	}
}

// SetupServer configures an Asynq server instance and the handler mux for the
// requested worker roles. The caller runs srv.Run(mux), typically in a
// goroutine, and owns shutdown.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
				"images":   5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	if isBgWorker {
		mux.HandleFunc(TypeViewFlush, processor.HandleViewFlushTask)
		log.Println("Registered background task handlers.")
	}

	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Println("Registered image processing task handlers.")
	}

	if !isBgWorker && !isImageWorker {
		log.Println("Running in API mode, no task server started.")
		return nil, nil
	}

	return srv, mux
}

// --- Task Handlers ---

// ImageTaskPayload is the payload for image normalization tasks.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID string `json:"listing_id"`
}

// HandleImageProcessTask downloads an uploaded image, normalizes its size,
// writes the processed copy back, and attaches the key to the listing.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	listingID, err := utils.ParseSixID(payload.ListingID)
	if err != nil {
		log.Printf("Invalid ListingID in image task payload: %s", payload.ListingID)
		return fmt.Errorf("invalid listing ID in payload: %w", asynq.SkipRetry)
	}

	log.Printf("Processing image task: S3Key=%s, ListingID=%s", payload.S3Key, payload.ListingID)

	getObjectOutput, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("S3 object %s not found, likely upload failed or key incorrect.", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer getObjectOutput.Body.Close()

	imgData, err := io.ReadAll(getObjectOutput.Body)
	if err != nil {
		return fmt.Errorf("failed to read image data for key %s: %w", payload.S3Key, err)
	}

	// Check size before decoding
	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(imgData), maxSizeBytes)
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	maxWidth := uint(p.cfg.ImageMaxDimension)
	maxHeight := uint(p.cfg.ImageMaxDimension)
	needsResize := uint(img.Bounds().Dx()) > maxWidth || uint(img.Bounds().Dy()) > maxHeight

	processedImageData := imgData
	contentType := "image/" + format
	if getObjectOutput.ContentType != nil {
		contentType = *getObjectOutput.ContentType
	}

	if needsResize {
		resizedImg := resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err = jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image %s: %w", payload.S3Key, err)
		}
		processedImageData = buf.Bytes()
		contentType = "image/jpeg"
		log.Printf("Resized image %s to %dx%d", payload.S3Key, resizedImg.Bounds().Dx(), resizedImg.Bounds().Dy())

		if int64(len(processedImageData)) > maxSizeBytes {
			return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
		}

		// Overwrite the original upload with the normalized copy.
		_, err = p.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.cfg.AwsS3Bucket),
			Key:         aws.String(payload.S3Key),
			Body:        bytes.NewReader(processedImageData),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return fmt.Errorf("failed to upload processed image %s: %w", payload.S3Key, err)
		}
	}

	if err = p.listingService.AttachImage(ctx, listingID, payload.S3Key); err != nil {
		log.Printf("Error adding image key %s to listing %s: %v", payload.S3Key, payload.ListingID, err)
		return fmt.Errorf("failed to update listing with processed image: %w", err)
	}

	log.Printf("Image task processed successfully: Key=%s, ListingID=%s", payload.S3Key, payload.ListingID)
	return nil
}

// HandleViewFlushTask drains the accumulated Redis view counters into the
// listings collection, then re-enqueues itself to run again after the
// configured interval.
func (p *TaskProcessor) HandleViewFlushTask(ctx context.Context, t *asynq.Task) error {
	flushed := 0

	iter := p.rdb.Scan(ctx, 0, cache.ViewCounterPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		// GetDel so a crash between read and write loses at most one
		// interval's worth of counts.
		val, err := p.rdb.GetDel(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			log.Printf("Error reading view counter %s: %v", key, err)
			continue
		}

		idStr := strings.TrimPrefix(key, cache.ViewCounterPrefix)
		listingID, err := utils.ParseSixID(idStr)
		if err != nil {
			log.Printf("Dropping view counter with malformed key %s: %v", key, err)
			continue
		}

		if err = p.listingService.IncrementViews(ctx, listingID, val); err != nil {
			log.Printf("Error flushing %d views to listing %s: %v", val, idStr, err)
			// Put the count back so the next run retries it.
			if rerr := p.rdb.IncrBy(ctx, key, val).Err(); rerr != nil {
				log.Printf("ERROR restoring view counter %s: %v", key, rerr)
			}
			continue
		}
		flushed++
	}
	if err := iter.Err(); err != nil {
		log.Printf("Error scanning view counters: %v", err)
	}

	if flushed > 0 {
		log.Printf("Flushed view counters for %d listing(s).", flushed)
	}

	// Self-reschedule.
	if _, err := p.taskClient.EnqueueContext(ctx, NewViewFlushTask(), asynq.ProcessIn(p.cfg.ViewFlushInterval)); err != nil {
		log.Printf("ERROR failed to re-enqueue view flush task: %v", err)
		return err
	}
	return nil
}
