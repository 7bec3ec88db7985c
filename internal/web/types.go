package web

import (
	"time"

	"github.com/example/faultloc/internal/storage"
	"github.com/example/faultloc/localize/domain"
)

// RunSummary is a summary of a run for listing
type RunSummary struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Phase      string    `json:"phase"`
	Executions int       `json:"executions"`
	CacheHits  int       `json:"cacheHits"`
	Rounds     int       `json:"rounds"`
	Confirmed  int       `json:"confirmed"`
	Discarded  int       `json:"discarded"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ListRunsResponse is the response for GET /api/runs/
type ListRunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

// CombinationInfo is an identified combination of a run
type CombinationInfo struct {
	Key       string         `json:"key"`
	Kind      string         `json:"kind"`
	Confirmed bool           `json:"confirmed"`
	Exception *ExceptionInfo `json:"exception,omitempty"`
}

// ExceptionInfo is the classification of an exception-inducing combination
type ExceptionInfo struct {
	Type   string `json:"type"`
	Votes  int    `json:"votes"`
	Checks int    `json:"checks"`
}

// RunResponse is the response for GET /api/runs/:id
type RunResponse struct {
	Run          RunSummary        `json:"run"`
	Combinations []CombinationInfo `json:"combinations"`
}

// ResultInfo is one executed input
type ResultInfo struct {
	Input    string `json:"input"`
	Phase    string `json:"phase"`
	Outcome  string `json:"outcome"`
	Cause    string `json:"cause,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// ResultsResponse is the response for GET /api/runs/:id/results
type ResultsResponse struct {
	RunID   string       `json:"runId"`
	Results []ResultInfo `json:"results"`
}

func convertRun(run *domain.Run) RunSummary {
	return RunSummary{
		ID:         run.ID,
		Model:      run.ModelName,
		Phase:      run.Phase.String(),
		Executions: run.Executions,
		CacheHits:  run.CacheHits,
		Rounds:     run.Rounds,
		CreatedAt:  run.CreatedAt,
		UpdatedAt:  run.UpdatedAt,
	}
}

func convertCombination(rec *storage.CombinationRecord) CombinationInfo {
	info := CombinationInfo{
		Key:       rec.Key,
		Kind:      rec.Kind.String(),
		Confirmed: rec.Confirmed,
	}
	if rec.Exception != nil {
		info.Exception = &ExceptionInfo{
			Type:   rec.Exception.Type,
			Votes:  rec.Exception.Votes,
			Checks: rec.Exception.Checks,
		}
	}
	return info
}

func convertResult(rec *storage.ResultRecord) ResultInfo {
	info := ResultInfo{
		Input:   rec.InputKey,
		Phase:   rec.Phase.String(),
		Outcome: rec.Result.Outcome.String(),
		Cause:   rec.Result.CauseType(),
	}
	if rec.Result.Duration > 0 {
		info.Duration = rec.Result.Duration.String()
	}
	return info
}
