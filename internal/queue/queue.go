package queue

import (
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// EnqueuePublish schedules a publish task to fire no earlier than delay from
// now. The returned task ID is stored on the post row so cancellation can try
// to remove the pending task. Delivery is at-least-once; the worker's claim
// guard handles redelivery.
func EnqueuePublish(asynqClient *asynq.Client, payload PublishPostPayload, delay time.Duration) (string, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	taskID, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)
	_, err = asynqClient.Enqueue(task,
		asynq.TaskID(taskID),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return "", err
	}

	log.Printf("Publish task scheduled: %+v", payload)
	return taskID, nil
}

// CancelPublish best-effort removes a pending publish task. A task that
// already fired (or fires anyway) is stopped by the worker's claim guard, so
// removal failures are not fatal.
func CancelPublish(inspector *asynq.Inspector, taskID string) error {
	return inspector.DeleteTask("default", taskID)
}

// EnqueueMetrics hands a successful platform post to the engagement pipeline.
// Collection runs well after publishing so early metrics exist by then.
func EnqueueMetrics(asynqClient *asynq.Client, payload CollectMetricsPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeCollectMetrics, taskPayload)
	_, err = asynqClient.Enqueue(task, asynq.ProcessIn(30*time.Minute))
	return err
}
