package queue

import (
	"context"
	"encoding/json"
)

// Job defines a queue job handler.
type Job interface {
	// Name returns a human readable identifier used in logs.
	Name() string

	// Type returns the type of message that the job handles.
	Type() string

	// Handle processes one message payload.
	Handle(ctx context.Context, msg Message) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	JobType string
	Fn      func(ctx context.Context, msg Message) error
}

func (j JobFunc) Name() string { return j.JobName }

func (j JobFunc) Type() string { return j.JobType }

func (j JobFunc) Handle(ctx context.Context, msg Message) error { return j.Fn(ctx, msg) }

// Decode unmarshals a message payload into T.
func Decode[T any](msg Message) (T, error) {
	var out T
	err := json.Unmarshal(msg.Payload, &out)
	return out, err
}
