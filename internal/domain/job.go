package domain

import (
	"encoding/json"
	"time"
)

// Job type names shared between the enqueue side and the worker process.
const (
	JobAddAuthUser         = "addAuthUserToDatabase"
	JobAddUser             = "addUserToDatabase"
	JobAddPost             = "addPostToDatabase"
	JobUpdatePost          = "updatePostInDatabase"
	JobDeletePost          = "deletePostFromDatabase"
	JobForgotPasswordEmail = "forgotPasswordEmail"
)

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobRunning    JobStatus = "running"
	JobSucceeded  JobStatus = "succeeded"
	JobFailedTemp JobStatus = "failed_temp"
	JobFailedPerm JobStatus = "failed_perm"
)

// Job is the envelope a queue carries between enqueue and the worker that
// runs it. Payload stays opaque until the registered handler decodes it.
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"maxAttempts"`
	EnqueuedAt  time.Time       `json:"enqueuedAt"`
	LastError   string          `json:"lastError,omitempty"`
}

// DecodePayload unmarshals the job payload into v.
func (j *Job) DecodePayload(v any) error {
	return json.Unmarshal(j.Payload, v)
}

// KeyValueJob is the single-key payload shape: one identifier plus the
// entity value to persist.
type KeyValueJob[T any] struct {
	Key   string `json:"key"`
	Value T      `json:"value"`
}

// KeyPairJob is the two-key payload shape used by delete-by-id-pair jobs.
type KeyPairJob struct {
	KeyOne string `json:"keyOne"`
	KeyTwo string `json:"keyTwo"`
}

// EmailJob is the payload for fire-and-forget mail delivery.
type EmailJob struct {
	Receiver string `json:"receiverEmail"`
	Subject  string `json:"subject"`
	Body     string `json:"template"`
}
