package ports

import (
	"context"

	"fermload/domain/core"
	"fermload/domain/run"
)

// RunRepository persists load runs with their resources and artifacts
type RunRepository interface {
	CreateRun(ctx context.Context, r *run.Run) error
	FinishRun(ctx context.Context, r *run.Run) error
	GetRun(ctx context.Context, id core.RunID) (*run.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error)

	SaveResources(ctx context.Context, id core.RunID, resources []run.ResourceRecord) error
	ListResources(ctx context.Context, id core.RunID) ([]run.ResourceRecord, error)
	GetResource(ctx context.Context, id core.RunID, name string) (*run.ResourceRecord, error)

	SaveArtifact(ctx context.Context, a *run.Artifact) error
	GetArtifact(ctx context.Context, id core.RunID, kind run.ArtifactKind) (*run.Artifact, error)
}
