package storage

import (
	"context"
	"time"

	"github.com/example/faultloc/localize/domain"
)

// ListOptions provides filtering options for list operations.
type ListOptions struct {
	// Phases to filter runs by (empty = all)
	Phases []domain.Phase

	// Pagination
	Limit  int
	Offset int
}

// ResultRecord is a cached execution result. Results are keyed by model
// and input so that an input is executed at most once per model.
type ResultRecord struct {
	ModelName string
	InputKey  string
	RunID     string
	Phase     domain.Phase
	Result    domain.TestResult
}

// CombinationRecord is an identified combination of a run.
type CombinationRecord struct {
	RunID     string
	Key       string
	Kind      domain.Kind
	Confirmed bool
	Exception *domain.ExceptionClass
	CreatedAt time.Time
}

// RunRepository provides access to Run storage.
type RunRepository interface {
	// Create creates a new Run.
	Create(ctx context.Context, run *domain.Run) error

	// Get retrieves a Run by ID.
	Get(ctx context.Context, id string) (*domain.Run, error)

	// Update updates an existing Run, failing with ErrConcurrentModify when
	// the stored version differs.
	Update(ctx context.Context, run *domain.Run) error

	// List lists Runs, newest first.
	List(ctx context.Context, opts ListOptions) ([]*domain.Run, error)

	// Delete deletes a Run and its combinations.
	Delete(ctx context.Context, id string) error
}

// ResultRepository provides access to cached execution results.
type ResultRepository interface {
	// Put stores a result. An existing result for the same input is kept.
	Put(ctx context.Context, rec *ResultRecord) error

	// Get retrieves the result for an input.
	Get(ctx context.Context, modelName, inputKey string) (*ResultRecord, error)

	// ListByRun lists the results executed by a run, in execution order.
	ListByRun(ctx context.Context, runID string) ([]*ResultRecord, error)

	// DeleteByModel drops every cached result of a model.
	DeleteByModel(ctx context.Context, modelName string) (int64, error)
}

// CombinationRepository provides access to identified combinations.
type CombinationRepository interface {
	// Save inserts or replaces a combination record.
	Save(ctx context.Context, rec *CombinationRecord) error

	// List lists the combinations of a run ordered by key.
	List(ctx context.Context, runID string) ([]*CombinationRecord, error)
}

// UnitOfWork provides transactional access to all repositories.
type UnitOfWork interface {
	// Repository accessors
	Runs() RunRepository
	Results() ResultRepository
	Combinations() CombinationRepository

	// Transaction control
	Commit() error
	Rollback() error
}

// Storage provides the main entry point for storage operations.
type Storage interface {
	// Begin starts a new transaction and returns a UnitOfWork.
	Begin(ctx context.Context) (UnitOfWork, error)

	// Close closes the storage connection.
	Close() error

	// Migrate runs database migrations.
	Migrate(ctx context.Context) error
}
