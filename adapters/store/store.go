// Package store persists load runs in PostgreSQL or SQLite through sqlx.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"fermload/domain/core"
	"fermload/domain/run"
	"fermload/internal/errors"
	"fermload/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// runRepository implements ports.RunRepository
type runRepository struct {
	db *sqlx.DB
}

// Open connects to the database and applies the schema
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("open "+driver, err)
	}
	if driver == "sqlite" {
		// one writer; also keeps a :memory: database alive across calls
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("connect "+driver, err)
	}
	if err := NewMigrator().Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// NewRunRepository creates a repository on an open database
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

const runColumns = `id, name, pipeline, status, fingerprint, resource_count, skipped_count,
	error_message, started_at, finished_at`

// CreateRun inserts a new run
func (r *runRepository) CreateRun(ctx context.Context, rn *run.Run) error {
	query := r.db.Rebind(`INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		rn.ID.String(), rn.Name, rn.Pipeline, string(rn.Status), string(rn.Fingerprint), rn.Resources, rn.Skipped,
		rn.Error, rn.StartedAt, rn.FinishedAt,
	)
	if err != nil {
		return errors.DatabaseError("failed to create run", err)
	}
	return nil
}

// FinishRun stores the outcome of a run
func (r *runRepository) FinishRun(ctx context.Context, rn *run.Run) error {
	query := r.db.Rebind(`UPDATE runs SET status = ?, resource_count = ?, skipped_count = ?,
		error_message = ?, finished_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, string(rn.Status), rn.Resources, rn.Skipped, rn.Error, rn.FinishedAt, rn.ID.String())
	if err != nil {
		return errors.DatabaseError("failed to finish run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(rn.ID)
	}
	return nil
}

// GetRun retrieves a run by ID
func (r *runRepository) GetRun(ctx context.Context, id core.RunID) (*run.Run, error) {
	var rn run.Run
	query := r.db.Rebind(`SELECT ` + runColumns + ` FROM runs WHERE id = ?`)
	if err := r.db.GetContext(ctx, &rn, query, id.String()); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, errors.DatabaseError("failed to get run", err)
	}
	return &rn, nil
}

// ListRuns returns runs newest first
func (r *runRepository) ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []*run.Run
	query := r.db.Rebind(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &runs, query, limit, offset); err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	return runs, nil
}

// SaveResources inserts the resources of a run in one transaction
func (r *runRepository) SaveResources(ctx context.Context, id core.RunID, resources []run.ResourceRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`INSERT INTO run_resources
		(run_id, name, batch, sample, plate, medium, missing_value, row_count, tags, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, res := range resources {
		if _, err := tx.ExecContext(ctx, query,
			id.String(), res.Name, res.Batch, res.Sample, res.Plate, res.Medium, res.Missing, res.Rows, res.Tags, res.CSV,
		); err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to save resource %s", res.Name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit resources", err)
	}
	return nil
}

// ListResources returns the resources of a run without their content
func (r *runRepository) ListResources(ctx context.Context, id core.RunID) ([]run.ResourceRecord, error) {
	var out []run.ResourceRecord
	query := r.db.Rebind(`SELECT run_id, name, batch, sample, plate, medium, missing_value, row_count, tags
		FROM run_resources WHERE run_id = ? ORDER BY name`)
	if err := r.db.SelectContext(ctx, &out, query, id.String()); err != nil {
		return nil, errors.DatabaseError("failed to list resources", err)
	}
	return out, nil
}

// GetResource returns one resource with its CSV content
func (r *runRepository) GetResource(ctx context.Context, id core.RunID, name string) (*run.ResourceRecord, error) {
	var rec run.ResourceRecord
	query := r.db.Rebind(`SELECT run_id, name, batch, sample, plate, medium, missing_value, row_count, tags, content
		FROM run_resources WHERE run_id = ? AND name = ?`)
	if err := r.db.GetContext(ctx, &rec, query, id.String(), name); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w: %s in run %s", core.ErrNoResource, name, id))
		}
		return nil, errors.DatabaseError("failed to get resource", err)
	}
	return &rec, nil
}

// SaveArtifact stores or replaces a run-level artifact
func (r *runRepository) SaveArtifact(ctx context.Context, a *run.Artifact) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM run_artifacts WHERE run_id = ? AND kind = ?`), a.RunID.String(), string(a.Kind)); err != nil {
		return errors.DatabaseError("failed to replace artifact", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO run_artifacts (run_id, kind, content) VALUES (?, ?, ?)`),
		a.RunID.String(), string(a.Kind), a.Content); err != nil {
		return errors.DatabaseError("failed to save artifact", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit artifact", err)
	}
	return nil
}

// GetArtifact retrieves a run-level artifact
func (r *runRepository) GetArtifact(ctx context.Context, id core.RunID, kind run.ArtifactKind) (*run.Artifact, error) {
	var a run.Artifact
	query := r.db.Rebind(`SELECT run_id, kind, content FROM run_artifacts WHERE run_id = ? AND kind = ?`)
	if err := r.db.GetContext(ctx, &a, query, id.String(), string(kind)); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound(fmt.Sprintf("%s of run %s", kind, id))
		}
		return nil, errors.DatabaseError("failed to get artifact", err)
	}
	return &a, nil
}

func notFound(id core.RunID) error {
	return errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w: %s", core.ErrRunNotFound, id))
}
