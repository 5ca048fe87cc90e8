package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskQueue is satisfied by *asynq.Client.
type TaskQueue interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewClient returns the asynq client the API process enqueues with.
func NewClient(redisAddr string) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
}

// EnqueueEmail schedules one email task. Admin alerts go to their own queue.
func EnqueueEmail(q TaskQueue, taskType string, p EmailPayload) error {
	if p.SentAt.IsZero() {
		p.SentAt = time.Now().UTC()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode %s: %w", taskType, err)
	}
	queue := QueueEmails
	if taskType == TaskAdminAlert {
		queue = QueueAlerts
	}
	_, err = q.Enqueue(asynq.NewTask(taskType, b), asynq.Queue(queue), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
