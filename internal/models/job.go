package models

import "time"

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusInProgress  JobStatus = "in_progress"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusInterrupted JobStatus = "interrupted"
	JobStatusFailed      JobStatus = "failed"
)

// Job is the capture-orchestrator entity tracking one crawl run.
type Job struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at" badgerhold:"index"`
	UpdatedAt      time.Time `json:"updated_at"`
	Seeds          []string  `json:"seeds"`
	CanonicalSeeds []string  `json:"canonical_seeds"`
	Status         JobStatus `json:"status" badgerhold:"index"`

	PagesFound     int `json:"pages_found"`
	PagesProcessed int `json:"pages_processed"`
	PagesFailed    int `json:"pages_failed"`

	// Errors is a bounded list of short, user-surfaceable failure strings.
	Errors []string `json:"errors,omitempty"`

	// Options is the snapshot of the capture options used to start or resume the job,
	// kept so Resume can rebuild scheduler state without the caller re-supplying it.
	Options JobOptions `json:"options"`
}

// MaxJobErrors bounds the Errors slice retained on a Job.
const MaxJobErrors = 50

// AppendError appends a message to Errors, trimming the oldest entry once MaxJobErrors is exceeded.
func (j *Job) AppendError(msg string) {
	j.Errors = append(j.Errors, msg)
	if len(j.Errors) > MaxJobErrors {
		j.Errors = j.Errors[len(j.Errors)-MaxJobErrors:]
	}
}

// JobOptions mirrors capture.Options but lives in models so storage does not
// need to import the capture package (avoids an import cycle).
type JobOptions struct {
	Workers            int      `json:"workers"`
	PageLimitPerSeed    int      `json:"page_limit_per_seed,omitempty"` // 0 = unlimited
	StrictPath          bool     `json:"strict_path"`
	SkipCache           bool     `json:"skip_cache"`
	UseIncognito        bool     `json:"use_incognito"`
	FollowExternal      bool     `json:"follow_external"`
	MaxExternalHops     int      `json:"max_external_hops"`
	InterRequestDelayMs int      `json:"inter_request_delay_ms"`
	UnstableQuery       bool     `json:"unstable_query"` // true disables query-key sorting; sorted is the default
	ExcludeExtensions   []string `json:"exclude_extensions,omitempty"`
}
