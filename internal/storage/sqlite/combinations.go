package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/example/faultloc/internal/storage"
	"github.com/example/faultloc/localize/domain"
)

type combinationRepo struct {
	tx *sql.Tx
}

func (r *combinationRepo) Save(ctx context.Context, rec *storage.CombinationRecord) error {
	var exceptionJSON sql.NullString
	if rec.Exception != nil {
		data, err := json.Marshal(rec.Exception)
		if err != nil {
			return err
		}
		exceptionJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO combinations (run_id, combination_key, kind, confirmed, exception_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Key, rec.Kind.String(), rec.Confirmed, exceptionJSON, rec.CreatedAt)
	return err
}

func (r *combinationRepo) List(ctx context.Context, runID string) ([]*storage.CombinationRecord, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT run_id, combination_key, kind, confirmed, exception_json, created_at
		FROM combinations WHERE run_id = ? ORDER BY combination_key
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*storage.CombinationRecord
	for rows.Next() {
		rec := &storage.CombinationRecord{}
		var kind string
		var exceptionJSON sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.Key, &kind, &rec.Confirmed, &exceptionJSON, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Kind = domain.ParseKind(kind)
		if exceptionJSON.Valid && exceptionJSON.String != "" {
			rec.Exception = &domain.ExceptionClass{}
			if err := json.Unmarshal([]byte(exceptionJSON.String), rec.Exception); err != nil {
				return nil, err
			}
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
