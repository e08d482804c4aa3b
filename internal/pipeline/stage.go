package pipeline

import (
	"fmt"

	"github.com/couchcryptid/grid-status-etl/internal/domain"
)

// Stage names a step of an ingestion run.
type Stage string

const (
	StageFetch       Stage = "fetch"
	StageEvaluate    Stage = "evaluate"
	StageParse       Stage = "parse"
	StageResolveTime Stage = "resolve_time"
	StagePersist     Stage = "persist"
)

// StageError records which source and stage an ingestion run failed in.
type StageError struct {
	Source domain.Source
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
