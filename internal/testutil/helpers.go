package testutil

import (
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/assets"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/config"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/logging"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/repository"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/source"
)

// TestSyncConfig returns the production defaults for the sync policy.
func TestSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		MaxAttempts:      3,
		CooldownDuration: 5 * time.Minute,
		Freshness:        24 * time.Hour,
		BatchConcurrency: 2,
		InterBatchDelay:  2 * time.Second,
		DerivedCacheTTL:  24 * time.Hour,
	}
}

// NewTestSyncService wires a SyncService over the test database and the given fetchers.
func NewTestSyncService(t *testing.T, db *sql.DB, reg *assets.Registry, primary, secondary source.Fetcher, clock *FakeClock) *service.SyncService {
	t.Helper()

	cfg := TestSyncConfig()
	cacheRepo := repository.NewCacheRepository(db).WithClock(clock.Now)
	failureRepo := repository.NewFailureRepository(db, cfg.MaxAttempts)

	return service.NewSyncService(
		reg,
		cacheRepo,
		failureRepo,
		primary,
		secondary,
		cfg,
		logging.Discard(),
		nil,
	).WithClock(clock.Now)
}

// NewTestBatchService wires a BatchService whose pauses are recorded instead of slept.
// The returned recorder collects every requested pause.
func NewTestBatchService(t *testing.T, syncer service.AssetSyncer, reg *assets.Registry) (*service.BatchService, *SleepRecorder) {
	t.Helper()

	rec := &SleepRecorder{}
	svc := service.NewBatchService(syncer, reg, TestSyncConfig(), logging.Discard(), nil).WithSleep(rec.Sleep)
	return svc, rec
}

// NewTestReindexService wires a ReindexService with the default 30/60 day window.
func NewTestReindexService(t *testing.T, db *sql.DB, reg *assets.Registry, clock *FakeClock) *service.ReindexService {
	t.Helper()

	return service.NewReindexService(
		reg,
		repository.NewCacheRepository(db).WithClock(clock.Now),
		repository.NewDerivedRepository(db).WithClock(clock.Now),
		config.ReindexConfig{DaysBefore: 30, DaysAfter: 60},
		24*time.Hour,
		logging.Discard(),
		nil,
	)
}

// NewTestAssetService wires an AssetService with a 24h freshness window.
func NewTestAssetService(t *testing.T, db *sql.DB, reg *assets.Registry, clock *FakeClock) *service.AssetService {
	t.Helper()

	return service.NewAssetService(
		reg,
		repository.NewCacheRepository(db).WithClock(clock.Now),
		repository.NewFailureRepository(db, 3),
		24*time.Hour,
	).WithClock(clock.Now)
}

// NewTestAnalysisService wires an AnalysisService over the test database.
func NewTestAnalysisService(t *testing.T, db *sql.DB, reg *assets.Registry) *service.AnalysisService {
	t.Helper()

	return service.NewAnalysisService(reg, repository.NewCacheRepository(db))
}

// NewTestSystemService wires a SystemService over the test database.
func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}

// NewTestPriceService wires a PriceService that downloads through fetcher.
func NewTestPriceService(t *testing.T, db *sql.DB, reg *assets.Registry, fetcher source.Fetcher) *service.PriceService {
	t.Helper()

	return service.NewPriceService(reg, repository.NewCacheRepository(db), fetcher, logging.Discard(), nil)
}

// NewTestDocsService wires a DocsService. A nil publisher leaves archiving disabled.
func NewTestDocsService(t *testing.T, reg *assets.Registry, fetcher service.DocsFetcher, publisher service.DocumentPublisher, clock *FakeClock) *service.DocsService {
	t.Helper()

	svc := service.NewDocsService(reg, fetcher, logging.Discard()).WithClock(clock.Now)
	if publisher != nil {
		svc.WithPublisher(publisher)
	}
	return svc
}

// MakeID generates a unique ID for testing.
func MakeID() string {
	return uuid.New().String()
}

// MakeAssetName generates a unique asset name with the given prefix.
// Example: MakeAssetName("equity") -> "equity-a1b2c3"
func MakeAssetName(prefix string) string {
	return prefix + "-" + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random lowercase alphanumeric string.
func randomAlphanumeric(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	for i := range b {
		//nolint:gosec // Test data only, crypto/rand not needed
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
