package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/example/faultloc/internal/storage"
	"github.com/example/faultloc/localize/domain"
)

// StoreRecorder is a Recorder backed by storage.
type StoreRecorder struct {
	store storage.Storage
}

// NewStoreRecorder creates a StoreRecorder.
func NewStoreRecorder(store storage.Storage) *StoreRecorder {
	return &StoreRecorder{store: store}
}

// Begin implements Recorder.
func (r *StoreRecorder) Begin(ctx context.Context, run *domain.Run) error {
	return r.inTx(ctx, func(uow storage.UnitOfWork) error {
		return uow.Runs().Create(ctx, run)
	})
}

// Progress implements Recorder.
func (r *StoreRecorder) Progress(ctx context.Context, run *domain.Run) error {
	return r.inTx(ctx, func(uow storage.UnitOfWork) error {
		return uow.Runs().Update(ctx, run)
	})
}

// Finish implements Recorder. Confirmed and discarded combinations are
// stored with the run.
func (r *StoreRecorder) Finish(ctx context.Context, run *domain.Run, report *domain.Report) error {
	return r.inTx(ctx, func(uow storage.UnitOfWork) error {
		if err := uow.Runs().Update(ctx, run); err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, ic := range report.Discarded.Sorted() {
			if err := uow.Combinations().Save(ctx, &storage.CombinationRecord{
				RunID:     run.ID,
				Key:       ic.Combination.Key(),
				Kind:      ic.Kind,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		for _, ic := range report.Confirmed.Sorted() {
			rec := &storage.CombinationRecord{
				RunID:     run.ID,
				Key:       ic.Combination.Key(),
				Kind:      ic.Kind,
				Confirmed: true,
				CreatedAt: now,
			}
			if class, ok := report.ExceptionClasses[rec.Key]; ok {
				rec.Exception = &class
			}
			if err := uow.Combinations().Save(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *StoreRecorder) inTx(ctx context.Context, fn func(storage.UnitOfWork) error) error {
	uow, err := r.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}
