package domain

import (
	"encoding/json"
	"time"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Live reports whether a job in this state blocks a duplicate enqueue.
func (s JobStatus) Live() bool {
	return s == JobStatusQueued || s == JobStatusRunning || s == JobStatusSucceeded
}

const (
	MinJobPriority = 0
	MaxJobPriority = 9
)

// JobOptions is the persisted subset of a Request; the upload itself lives in
// the archive store under SourceKey.
type JobOptions struct {
	Topic        string    `json:"topic"`
	Style        string    `json:"style"`
	Placement    Placement `json:"placement"`
	Tone         string    `json:"tone,omitempty"`
	ChannelStyle string    `json:"channel_style,omitempty"`
	Variants     int       `json:"variants"`
	PostProcess  bool      `json:"post_process,omitempty"`
	ImageMIME    string    `json:"image_mime,omitempty"`
}

// JobResult is written once a job succeeds.
type JobResult struct {
	Fingerprint string `json:"fingerprint"`
	ArchiveKey  string `json:"archive_key"`
	Horizontal  int    `json:"horizontal"`
	Vertical    int    `json:"vertical"`
	Cached      bool   `json:"cached"`
}

// Job encapsulates the lifecycle of an asynchronous thumbnail generation.
type Job struct {
	ID           string
	Fingerprint  string
	Status       JobStatus
	Priority     int
	Attempts     int
	MaxAttempts  int
	Options      JobOptions
	SourceKey    string
	Country      string
	Result       *JobResult
	ErrorMessage string
	RunAfter     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Request rebuilds a pipeline request from the persisted options.
func (j *Job) Request(image []byte) Request {
	return Request{
		Image:        image,
		ImageMIME:    j.Options.ImageMIME,
		Topic:        j.Options.Topic,
		Style:        j.Options.Style,
		Placement:    j.Options.Placement,
		Tone:         j.Options.Tone,
		ChannelStyle: j.Options.ChannelStyle,
		Variants:     j.Options.Variants,
		PostProcess:  j.Options.PostProcess,
	}
}

// MarshalOptions encodes options for a JSONB column.
func MarshalOptions(opts JobOptions) []byte {
	raw, err := json.Marshal(opts)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

// JobStats aggregates job counts for the stats endpoint.
type JobStats struct {
	ByStatus  map[JobStatus]int `json:"by_status"`
	ByCountry map[string]int    `json:"by_country"`
}
