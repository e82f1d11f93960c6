package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"firext-backend/internal/model"
)

// newTestDB opens a private in-memory sqlite database with all tables migrated.
func newTestDB(t *testing.T) *gorm.DB {
	return openTestDB(t, "")
}

// openTestDB is newTestDB with extra DSN parameters appended.
func openTestDB(t *testing.T, params string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared%s", uuid.NewString(), params)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Dock{}, &model.CheckRecord{}, &model.ExpiringLed{}, &model.ReweighLed{},
		&model.PushSubscription{},
	))
	return db
}

// newMockDB creates a gorm handle backed by sqlmock.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func weight(w float64) *float64 { return &w }
func led(n int) *int             { return &n }
func flag(b bool) *bool          { return &b }
func at(t time.Time) *time.Time  { return &t }

func drain(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func TestGormStore_CreateAndGet(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	dock := &model.Dock{Name: "Dock A", Location: "Lobby", Weight: weight(4.8), LedNum: led(3), LedState: flag(false)}
	require.NoError(t, s.CreateDock(ctx, dock))
	assert.NotEmpty(t, dock.ID)

	got, err := s.GetDock(ctx, dock.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dock A", got.Name)
	assert.Equal(t, 4.8, *got.Weight)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.GetDock(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_ListDocksOrder(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	docks := []*model.Dock{
		{ID: "a", Name: "A", Location: "L", ExpiresAt: at(base.AddDate(0, 0, 10)), CreatedAt: base},
		{ID: "b", Name: "B", Location: "L", ExpiresAt: nil, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "c", Name: "C", Location: "L", ExpiresAt: at(base.AddDate(0, 0, 2)), CreatedAt: base.Add(time.Hour)},
	}
	for _, d := range docks {
		require.NoError(t, s.CreateDock(ctx, d))
	}

	byExpiry, err := s.ListDocks(ctx, OrderByExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(byExpiry))

	byCreated, err := s.ListDocks(ctx, OrderByCreatedAt)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(byCreated))
}

func TestGormStore_UpdateDockFieldsIsScoped(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	dock := &model.Dock{ID: "d1", Name: "Dock", Location: "Hall", Weight: weight(2.0), LedState: flag(false), LedNum: led(1)}
	require.NoError(t, s.CreateDock(ctx, dock))
	drain(s.Changes())

	require.NoError(t, s.UpdateDockFields(ctx, "d1", map[string]any{"led_state": true}))

	select {
	case <-s.Changes():
	default:
		t.Fatal("expected a change signal after update")
	}

	got, err := s.GetDock(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, *got.LedState)
	assert.Equal(t, 2.0, *got.Weight)
	assert.Equal(t, "Dock", got.Name)
	assert.Equal(t, 1, *got.LedNum)

	err = s.UpdateDockFields(ctx, "nope", map[string]any{"led_state": true})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_UpdateDockFieldsDatabaseError(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "docks" SET`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.UpdateDockFields(context.Background(), "d1", map[string]any{"led_state": true})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ReplaceDockKeepsCreatedAt(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	created := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateDock(ctx, &model.Dock{ID: "r1", Name: "Old", Location: "X", CreatedAt: created}))
	require.NoError(t, s.ReplaceDock(ctx, &model.Dock{ID: "r1", Name: "New", Location: "Y", Weight: weight(5)}))

	got, err := s.GetDock(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "Y", got.Location)
	assert.True(t, created.Equal(got.CreatedAt))

	require.NoError(t, s.ReplaceDock(ctx, &model.Dock{ID: "r2", Name: "Fresh", Location: "Z"}))
	_, err = s.GetDock(ctx, "r2")
	assert.NoError(t, err)
}

func TestGormStore_DeleteDocks(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	for _, id := range []string{"x", "y", "z"} {
		require.NoError(t, s.CreateDock(ctx, &model.Dock{ID: id, Name: id, Location: "L"}))
	}

	require.NoError(t, s.DeleteDock(ctx, "x"))
	assert.ErrorIs(t, s.DeleteDock(ctx, "x"), ErrNotFound)

	require.NoError(t, s.DeleteAllDocks(ctx))
	docks, err := s.ListDocks(ctx, OrderByExpiresAt)
	require.NoError(t, err)
	assert.Empty(t, docks)
}

func TestGormStore_DeleteDocksWithSubscriptions(t *testing.T) {
	db := openTestDB(t, "&_foreign_keys=on")
	s := NewGormStore(db)
	ctx := context.Background()

	mappings := func() int64 {
		var n int64
		require.NoError(t, db.Table("subscription_dock_mapping").Count(&n).Error)
		return n
	}

	for _, id := range []string{"x", "y"} {
		require.NoError(t, s.CreateDock(ctx, &model.Dock{ID: id, Name: id, Location: "L"}))
	}
	var docks []*model.Dock
	require.NoError(t, db.Find(&docks).Error)
	sub := model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "p", Auth: "a", Docks: docks}
	require.NoError(t, db.Create(&sub).Error)
	require.EqualValues(t, 2, mappings())

	require.NoError(t, s.DeleteDock(ctx, "x"))
	assert.EqualValues(t, 1, mappings())

	require.NoError(t, s.DeleteAllDocks(ctx))
	assert.EqualValues(t, 0, mappings())

	var subs int64
	require.NoError(t, db.Model(&model.PushSubscription{}).Count(&subs).Error)
	assert.EqualValues(t, 1, subs)
}

func TestGormStore_CheckRecordLifecycle(t *testing.T) {
	db := newTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	require.NoError(t, s.PutCheck(ctx, model.CheckRecord{DockID: "d1", Status: "Low", Weight: 2}))
	require.NoError(t, s.PutCheck(ctx, model.CheckRecord{DockID: "d1", Status: "Full", Weight: 5}))

	var rec model.CheckRecord
	require.NoError(t, db.First(&rec, "dock_id = ?", "d1").Error)
	assert.Equal(t, "Full", rec.Status)
	assert.Equal(t, 5.0, rec.Weight)

	require.NoError(t, s.DeleteCheck(ctx, "d1"))
	var count int64
	db.Model(&model.CheckRecord{}).Count(&count)
	assert.Equal(t, int64(0), count)

	// Deleting an absent record is not an error.
	assert.NoError(t, s.DeleteCheck(ctx, "d1"))
}

func TestGormStore_ReplaceProjections(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, s.ReplaceExpiring(ctx, []model.ExpiringLed{
		{DockID: "a", LedNum: 1, Rank: 1},
		{DockID: "b", LedNum: 2, Rank: 2},
	}))
	require.NoError(t, s.ReplaceExpiring(ctx, []model.ExpiringLed{{DockID: "c", LedNum: 3, Rank: 1}}))

	rows, err := s.ListExpiring(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ExpiringLed{{DockID: "c", LedNum: 3, Rank: 1}}, rows)

	require.NoError(t, s.ReplaceReweigh(ctx, []model.ReweighLed{{DockID: "a", LedNum: 1, Rank: 1}}))
	require.NoError(t, s.ReplaceReweigh(ctx, nil))
	reweigh, err := s.ListReweigh(ctx)
	require.NoError(t, err)
	assert.Empty(t, reweigh)
}

func TestGormStore_ServerTimeAndIDs(t *testing.T) {
	s := NewGormStore(newTestDB(t))

	assert.WithinDuration(t, time.Now(), s.ServerTime(), 5*time.Second)
	assert.Equal(t, time.UTC, s.ServerTime().Location())

	a, b := s.GenerateID(), s.GenerateID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestParseOrderKey(t *testing.T) {
	assert.Equal(t, OrderByCreatedAt, ParseOrderKey("created_at"))
	assert.Equal(t, OrderByExpiresAt, ParseOrderKey("expires_at"))
	assert.Equal(t, OrderByExpiresAt, ParseOrderKey("bogus"))
}

func ids(docks []model.Dock) []string {
	out := make([]string, len(docks))
	for i, d := range docks {
		out[i] = d.ID
	}
	return out
}
