package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/config"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/tasks"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

func TestNewImageProcessTask_Payload(t *testing.T) {
	listingID := utils.NewSixID()
	task, err := tasks.NewImageProcessTask(listingID, "uploads/u/l/key.jpg")
	assert.NoError(t, err)
	assert.Equal(t, tasks.TypeImageProcess, task.Type())

	var payload tasks.ImageTaskPayload
	assert.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, listingID.String(), payload.ListingID)
	assert.Equal(t, "uploads/u/l/key.jpg", payload.S3Key)
}

func TestNewViewFlushTask(t *testing.T) {
	task := tasks.NewViewFlushTask()
	assert.Equal(t, tasks.TypeViewFlush, task.Type())
}

func TestHandleImageProcessTask_BadPayload(t *testing.T) {
	cfg := &config.Config{}
	p := tasks.NewTaskProcessor(cfg, nil, nil, nil, nil)

	task := asynq.NewTask(tasks.TypeImageProcess, []byte("{not json"))
	err := p.HandleImageProcessTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "Malformed payload should not be retried")
}

func TestHandleImageProcessTask_InvalidListingID(t *testing.T) {
	cfg := &config.Config{}
	p := tasks.NewTaskProcessor(cfg, nil, nil, nil, nil)

	payloadBytes, _ := json.Marshal(tasks.ImageTaskPayload{
		S3Key:     "uploads/u/l/key.jpg",
		ListingID: "not-a-valid-id",
	})
	task := asynq.NewTask(tasks.TypeImageProcess, payloadBytes)
	err := p.HandleImageProcessTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "Unparseable listing ID should not be retried")
}
