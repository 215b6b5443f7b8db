package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(redisOpt asynq.RedisClientOpt, queueName string) *Client {
	return &Client{
		client: asynq.NewClient(redisOpt),
		queue:  queueName,
	}
}

func (c *Client) Queue() string {
	return c.queue
}

// EnqueueRenderAnimation schedules a render. The task ID is the job ID, so
// starting the same job twice while it is pending is rejected by asynq.
func (c *Client) EnqueueRenderAnimation(ctx context.Context, payload RenderAnimationPayload) (*asynq.TaskInfo, error) {
	task, err := NewRenderAnimationTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(
		ctx,
		task,
		asynq.Queue(c.queue),
		asynq.TaskID(payload.JobID),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Minute),
	)
}

func (c *Client) Close() error {
	return c.client.Close()
}
