package probe

import (
	"errors"

	"github.com/rflorenc/rainmaker-workbench/internal/models"
	"github.com/rflorenc/rainmaker-workbench/internal/rainmaker"
)

// Stage names the step a run reached.
type Stage string

const (
	StageCredentials Stage = "credentials"
	StageLogin       Stage = "login"
	StageNodes       Stage = "nodes"
	StageParams      Stage = "params"
	StageDone        Stage = "done"
)

// ErrCredentialsMissing is the Result error when either credential is unset.
var ErrCredentialsMissing = &rainmaker.Error{
	Category: rainmaker.ErrCatCredentials,
	Message:  "Credentials not provided. Set RAINMAKER_USERNAME and RAINMAKER_PASSWORD environment variables.",
}

// NodeSummary is one listed node.
type NodeSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Result describes how far a run got and what it saw. Err is nil when the
// run finished; an empty account also counts as finished.
type Result struct {
	Stage       Stage
	Err         error
	NodeCount   int
	Nodes       []NodeSummary
	FirstNodeID string
	ParamKeys   []string
}

// OK reports whether the run ended without a failure.
func (r Result) OK() bool {
	return r.Err == nil
}

// Category classifies the failure, or returns "" on success.
func (r Result) Category() rainmaker.ErrorCategory {
	return rainmaker.CategoryOf(r.Err)
}

// CredentialsMissing reports whether the run stopped before any network call.
func (r Result) CredentialsMissing() bool {
	return errors.Is(r.Err, ErrCredentialsMissing)
}

// Summary converts the result for storage on a job.
func (r Result) Summary() models.JobSummary {
	return models.JobSummary{
		Stage:       string(r.Stage),
		Category:    string(r.Category()),
		NodeCount:   r.NodeCount,
		FirstNodeID: r.FirstNodeID,
		ParamKeys:   r.ParamKeys,
	}
}
