package service

import (
	"context"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// CacheStore is the durable per-asset series store.
type CacheStore interface {
	Put(ctx context.Context, rec model.AssetCacheRecord) error
	Get(ctx context.Context, assetName string) (*model.AssetCacheRecord, error)
	GetAll(ctx context.Context) (map[string]model.AssetCacheRecord, error)
	IsFresh(ctx context.Context, assetName string, maxAge time.Duration) (bool, error)
	EvictOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

// FailureTracker is the durable per-asset, per-source retry bookkeeping.
type FailureTracker interface {
	RecordFailure(ctx context.Context, assetName string, src model.Source, state model.SourceState) error
	RecordSuccess(ctx context.Context, assetName string) error
	Clear(ctx context.Context, assetName string) error
	Get(ctx context.Context, assetName string) (*model.SourceFailureState, error)
	GetAll(ctx context.Context) (map[string]*model.SourceFailureState, error)
	IsInCooldown(ctx context.Context, assetName string, src model.Source, now time.Time) (bool, error)
}

// DerivedStore memoizes computed results by key.
type DerivedStore interface {
	Put(ctx context.Context, key, assetName string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// AssetRegistry resolves asset names to their definitions.
type AssetRegistry interface {
	Get(name string) (model.Asset, error)
	All() []model.Asset
	Names() []string
}
