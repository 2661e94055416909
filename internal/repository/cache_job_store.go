package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/cache"
)

const jobKeyPrefix = "train_job"

// CacheJobStore keeps training job state in the shared cache under train_job:<id>.
type CacheJobStore struct {
	c   cache.Service
	ttl time.Duration
}

func NewCacheJobStore(c cache.Service, ttl time.Duration) *CacheJobStore {
	return &CacheJobStore{c: c, ttl: ttl}
}

func (s *CacheJobStore) Put(ctx context.Context, job models.TrainJob) error {
	if err := s.c.Set(ctx, cache.GenerateKey(jobKeyPrefix, job.ID), job, s.ttl); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

func (s *CacheJobStore) Get(ctx context.Context, id string) (models.TrainJob, error) {
	var job models.TrainJob
	if err := s.c.Get(ctx, cache.GenerateKey(jobKeyPrefix, id), &job); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return job, models.ErrJobNotFound
		}
		return job, fmt.Errorf("load job %s: %w", id, err)
	}
	return job, nil
}
