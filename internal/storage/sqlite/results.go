package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/faultloc/internal/storage"
	"github.com/example/faultloc/localize/domain"
)

type resultRepo struct {
	tx *sql.Tx
}

const resultColumns = `model_name, input_key, run_id, phase, outcome, cause_type, cause_message,
	constraint_violation, duration_ns, logs, executed_at`

func (r *resultRepo) Put(ctx context.Context, rec *storage.ResultRecord) error {
	var causeType, causeMessage sql.NullString
	violation := false
	if c := rec.Result.Cause; c != nil {
		causeType = sql.NullString{String: c.Type, Valid: true}
		causeMessage = sql.NullString{String: c.Message, Valid: c.Message != ""}
		violation = c.ConstraintViolation
	}
	executedAt := rec.Result.ExecutedAt
	if executedAt.IsZero() {
		executedAt = time.Now().UTC()
	}

	_, err := r.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO results (`+resultColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ModelName, rec.InputKey, rec.RunID, int(rec.Phase), rec.Result.Outcome.String(),
		causeType, causeMessage, violation, int64(rec.Result.Duration), rec.Result.Logs, executedAt)
	return err
}

func (r *resultRepo) Get(ctx context.Context, modelName, inputKey string) (*storage.ResultRecord, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT `+resultColumns+`
		FROM results WHERE model_name = ? AND input_key = ?
	`, modelName, inputKey)

	rec, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *resultRepo) ListByRun(ctx context.Context, runID string) ([]*storage.ResultRecord, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+resultColumns+`
		FROM results WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*storage.ResultRecord
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *resultRepo) DeleteByModel(ctx context.Context, modelName string) (int64, error) {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM results WHERE model_name = ?`, modelName)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanResult(row scanner) (*storage.ResultRecord, error) {
	rec := &storage.ResultRecord{}
	var (
		runID        sql.NullString
		phase        int
		outcome      string
		causeType    sql.NullString
		causeMessage sql.NullString
		violation    bool
		durationNS   int64
		logs         sql.NullString
	)
	err := row.Scan(&rec.ModelName, &rec.InputKey, &runID, &phase, &outcome, &causeType, &causeMessage,
		&violation, &durationNS, &logs, &rec.Result.ExecutedAt)
	if err != nil {
		return nil, err
	}

	rec.RunID = runID.String
	rec.Phase = domain.Phase(phase)
	rec.Result.Outcome = domain.ParseOutcome(outcome)
	rec.Result.Duration = time.Duration(durationNS)
	rec.Result.Logs = logs.String
	if causeType.Valid {
		rec.Result.Cause = &domain.Cause{
			Type:                causeType.String,
			Message:             causeMessage.String,
			ConstraintViolation: violation,
		}
	}
	return rec, nil
}
