package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/faultloc/internal/storage"
	"github.com/example/faultloc/localize/domain"
)

type runRepo struct {
	tx *sql.Tx
}

const runColumns = `id, model_name, phase, executions, cache_hits, rounds, created_at, updated_at, version`

func (r *runRepo) Create(ctx context.Context, run *domain.Run) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.ModelName, int(run.Phase), run.Executions, run.CacheHits, run.Rounds,
		run.CreatedAt, run.UpdatedAt, run.Version)
	return err
}

func (r *runRepo) Get(ctx context.Context, id string) (*domain.Run, error) {
	row := r.tx.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.Run, error) {
	run := &domain.Run{}
	var phase int
	err := row.Scan(&run.ID, &run.ModelName, &phase, &run.Executions, &run.CacheHits, &run.Rounds,
		&run.CreatedAt, &run.UpdatedAt, &run.Version)
	if err != nil {
		return nil, err
	}
	run.Phase = domain.Phase(phase)
	return run, nil
}

func (r *runRepo) Update(ctx context.Context, run *domain.Run) error {
	result, err := r.tx.ExecContext(ctx, `
		UPDATE runs
		SET phase = ?, executions = ?, cache_hits = ?, rounds = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, int(run.Phase), run.Executions, run.CacheHits, run.Rounds, run.UpdatedAt, run.ID, run.Version)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrConcurrentModify
	}

	run.Version++
	return nil
}

func (r *runRepo) List(ctx context.Context, opts storage.ListOptions) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any

	if len(opts.Phases) > 0 {
		placeholders := make([]string, len(opts.Phases))
		for i, p := range opts.Phases {
			placeholders[i] = "?"
			args = append(args, int(p))
		}
		query += ` WHERE phase IN (` + strings.Join(placeholders, ", ") + `)`
	}

	query += ` ORDER BY created_at DESC, id`

	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *runRepo) Delete(ctx context.Context, id string) error {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrRunNotFound
	}

	return nil
}
