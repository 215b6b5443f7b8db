package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypeRenderAnimation = "animation:render"

// RenderAnimationPayload carries only the job reference. The worker loads
// the job itself so retries always see the stored parameters.
type RenderAnimationPayload struct {
	JobID       string    `json:"job_id"`
	SourceKey   string    `json:"source_key"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewRenderAnimationTask(payload RenderAnimationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal render payload: %w", err)
	}
	return asynq.NewTask(TypeRenderAnimation, body), nil
}

func ParseRenderAnimationPayload(task *asynq.Task) (RenderAnimationPayload, error) {
	var payload RenderAnimationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RenderAnimationPayload{}, fmt.Errorf("unmarshal render payload: %w", err)
	}
	if payload.JobID == "" {
		return RenderAnimationPayload{}, fmt.Errorf("render payload is missing job_id")
	}
	return payload, nil
}
