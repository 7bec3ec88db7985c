package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/faultloc/internal/storage"
	"github.com/example/faultloc/localize/domain"
)

// MemoryCache is an in-process ResultCache.
type MemoryCache struct {
	mu      sync.RWMutex
	results map[string]*domain.TestResult
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{results: make(map[string]*domain.TestResult)}
}

// Get implements ResultCache.
func (c *MemoryCache) Get(ctx context.Context, input domain.Combination) (*domain.TestResult, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[input.Key()]
	return r, ok, nil
}

// Put implements ResultCache. The first result stored for an input wins.
func (c *MemoryCache) Put(ctx context.Context, input domain.Combination, phase domain.Phase, result *domain.TestResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.results[input.Key()]; !ok {
		c.results[input.Key()] = result
	}
	return nil
}

// Len returns the number of cached results.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// StoreCache is a ResultCache persisted in storage, shared by every run of
// the same model.
type StoreCache struct {
	store     storage.Storage
	modelName string
	runID     string
}

// NewStoreCache creates a StoreCache. Results it stores are attributed to
// runID.
func NewStoreCache(store storage.Storage, modelName, runID string) *StoreCache {
	return &StoreCache{store: store, modelName: modelName, runID: runID}
}

// Get implements ResultCache.
func (c *StoreCache) Get(ctx context.Context, input domain.Combination) (*domain.TestResult, bool, error) {
	uow, err := c.store.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rec, err := uow.Results().Get(ctx, c.modelName, input.Key())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	result := rec.Result
	return &result, true, nil
}

// Put implements ResultCache.
func (c *StoreCache) Put(ctx context.Context, input domain.Combination, phase domain.Phase, result *domain.TestResult) error {
	uow, err := c.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.Results().Put(ctx, &storage.ResultRecord{
		ModelName: c.modelName,
		InputKey:  input.Key(),
		RunID:     c.runID,
		Phase:     phase,
		Result:    *result,
	}); err != nil {
		return err
	}
	return uow.Commit()
}
