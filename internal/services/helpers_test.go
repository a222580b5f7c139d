package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"amm-market/internal/database"
	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
	"amm-market/internal/repository"
)

const (
	testRegistry = "registry"
	testOwner    = "owner"
	testFees     = "fees"
)

var testStart = time.Unix(1_700_000_000, 0)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db, zap.NewNop()))
	return db
}

// testClock is a settable time source
type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Set(t time.Time)         { c.t = t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeRegistry records what the engine reports and can be told to fail
type fakeRegistry struct {
	admins      map[string]bool
	fees        string
	volumes     []VolumeStats
	resolutions []uint64
	volumeErr   error
	resolveErr  error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{admins: map[string]bool{"admin": true}, fees: testFees}
}

func (f *fakeRegistry) IsAdmin(_ context.Context, account string) (bool, error) {
	return f.admins[account], nil
}

func (f *fakeRegistry) FeesAddress(context.Context) (string, error) {
	return f.fees, nil
}

func (f *fakeRegistry) RecordVolume(_ context.Context, _ string, s VolumeStats) error {
	if f.volumeErr != nil {
		return f.volumeErr
	}
	f.volumes = append(f.volumes, s)
	return nil
}

func (f *fakeRegistry) RecordResolution(_ context.Context, _, _ string, idx uint64) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	f.resolutions = append(f.resolutions, idx)
	return nil
}

type engineFixture struct {
	db     *gorm.DB
	repo   *repository.Repository
	reg    *fakeRegistry
	clock  *testClock
	engine *MarketEngine
	market string
}

func newEngineFixture(t *testing.T, opts ...EngineOption) *engineFixture {
	t.Helper()
	db := openTestDB(t)
	f := &engineFixture{
		db:    db,
		repo:  repository.NewRepository(db),
		reg:   newFakeRegistry(),
		clock: &testClock{t: testStart},
	}
	opts = append([]EngineOption{WithClock(f.clock.Now)}, opts...)
	f.engine = NewMarketEngine(db, f.reg, zap.NewNop(), opts...)
	f.market = f.seedMarket(t, "m-1", testStart.Add(time.Hour))
	return f
}

func (f *engineFixture) seedMarket(t *testing.T, id string, end time.Time) string {
	t.Helper()
	require.NoError(t, f.repo.CreateMarket(context.Background(), &models.Market{
		ID:              id,
		Title:           "Will it rain?",
		SettlementDenom: "usdc",
		Owner:           testOwner,
		Registry:        testRegistry,
		MarketCreated:   testStart.Unix(),
		MarketEnd:       end.Unix(),
	}))
	return id
}

// bootstrap seeds the fixture market at 0.5 with 1000 units
func (f *engineFixture) bootstrap(t *testing.T) *Result {
	t.Helper()
	res, err := f.engine.Bootstrap(context.Background(), testRegistry, f.market,
		fixedpoint.New(models.ScaleUnits/2), fixedpoint.New(1_000_000_000), testOwner)
	require.NoError(t, err)
	return res
}

func (f *engineFixture) reload(t *testing.T) *models.Market {
	t.Helper()
	m, err := f.engine.GetMarket(context.Background(), f.market)
	require.NoError(t, err)
	return m
}

func (f *engineFixture) balance(t *testing.T, account string) *models.ShareBalance {
	t.Helper()
	b, err := f.repo.GetBalance(context.Background(), f.market, account)
	require.NoError(t, err)
	return b
}

func (f *engineFixture) escrow(t *testing.T) fixedpoint.U128 {
	t.Helper()
	e, err := f.repo.GetEscrow(context.Background(), f.market)
	require.NoError(t, err)
	return e.Balance
}

func u(v uint64) fixedpoint.U128 { return fixedpoint.New(v) }

// freshMarket is an uninitialized in-memory market for pure function tests
func freshMarket() *models.Market {
	return &models.Market{ID: "m", Owner: testOwner, Registry: testRegistry, MarketEnd: testStart.Add(time.Hour).Unix()}
}
