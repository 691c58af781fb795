package queue

import "context"

// Job consumes messages of one type from the queue. Implementations are
// registered on the consumer at construction.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type this job handles.
	Type() string

	// Handle processes one payload. Returning an error schedules a retry.
	Handle(ctx context.Context, payload interface{}) error
}
