package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"firext-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	ListDocks(ctx context.Context, order OrderKey) ([]model.Dock, error)
	GetDock(ctx context.Context, id string) (model.Dock, error)
	CreateDock(ctx context.Context, dock *model.Dock) error
	UpdateDockFields(ctx context.Context, id string, fields map[string]any) error
	ReplaceDock(ctx context.Context, dock *model.Dock) error
	DeleteDock(ctx context.Context, id string) error
	DeleteAllDocks(ctx context.Context) error

	PutCheck(ctx context.Context, rec model.CheckRecord) error
	DeleteCheck(ctx context.Context, dockID string) error

	ReplaceExpiring(ctx context.Context, rows []model.ExpiringLed) error
	ReplaceReweigh(ctx context.Context, rows []model.ReweighLed) error
	ListExpiring(ctx context.Context) ([]model.ExpiringLed, error)
	ListReweigh(ctx context.Context) ([]model.ReweighLed, error)

	GenerateID() string
	ServerTime() time.Time

	// Changes signals after every successful dock write made through this store.
	Changes() <-chan struct{}
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db      *gorm.DB
	changes chan struct{}
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, changes: make(chan struct{}, 1)}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Changes() <-chan struct{} {
	return s.changes
}

// changed coalesces pending signals; the watcher re-reads everything anyway.
func (s *gormStore) changed() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *gormStore) GenerateID() string {
	return uuid.NewString()
}

// ServerTime returns the clock gorm stamps created_at/updated_at with.
func (s *gormStore) ServerTime() time.Time {
	return s.db.NowFunc()
}

func (s *gormStore) ListDocks(ctx context.Context, order OrderKey) ([]model.Dock, error) {
	q := s.db.WithContext(ctx)
	switch order {
	case OrderByCreatedAt:
		q = q.Order("created_at DESC").Order("id")
	default:
		q = q.Order("expires_at IS NULL").Order("expires_at ASC").Order("id")
	}

	var docks []model.Dock
	if err := q.Find(&docks).Error; err != nil {
		return nil, fmt.Errorf("failed to list docks: %w", err)
	}
	return docks, nil
}

func (s *gormStore) GetDock(ctx context.Context, id string) (model.Dock, error) {
	var dock model.Dock
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&dock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Dock{}, ErrNotFound
	}
	if err != nil {
		return model.Dock{}, fmt.Errorf("failed to get dock %s: %w", id, err)
	}
	return dock, nil
}

func (s *gormStore) CreateDock(ctx context.Context, dock *model.Dock) error {
	if dock.ID == "" {
		dock.ID = s.GenerateID()
	}
	if err := s.db.WithContext(ctx).Create(dock).Error; err != nil {
		return fmt.Errorf("failed to create dock: %w", err)
	}
	s.changed()
	return nil
}

// UpdateDockFields merges the named columns into an existing dock without
// touching the others. updated_at is stamped by gorm.
func (s *gormStore) UpdateDockFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&model.Dock{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update dock %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.changed()
	return nil
}

// ReplaceDock overwrites every column of the dock, creating it if needed.
// created_at is preserved for an existing row.
func (s *gormStore) ReplaceDock(ctx context.Context, dock *model.Dock) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Dock
		err := tx.Select("created_at").Where("id = ?", dock.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(dock).Error
		case err != nil:
			return err
		}
		dock.CreatedAt = existing.CreatedAt
		return tx.Save(dock).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace dock %s: %w", dock.ID, err)
	}
	s.changed()
	return nil
}

// subscriptionMapping is the push subscription join table; its rows must
// go before the docks they reference.
const subscriptionMapping = "subscription_dock_mapping"

func (s *gormStore) DeleteDock(ctx context.Context, id string) error {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM "+subscriptionMapping+" WHERE dock_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Dock{}, "id = ?", id)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete dock %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.changed()
	return nil
}

func (s *gormStore) DeleteAllDocks(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM " + subscriptionMapping).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&model.Dock{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete all docks: %w", err)
	}
	s.changed()
	return nil
}

// PutCheck writes the whole check record for a dock.
func (s *gormStore) PutCheck(ctx context.Context, rec model.CheckRecord) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dock_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "weight"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to write check record for dock %s: %w", rec.DockID, err)
	}
	return nil
}

func (s *gormStore) DeleteCheck(ctx context.Context, dockID string) error {
	if err := s.db.WithContext(ctx).Delete(&model.CheckRecord{}, "dock_id = ?", dockID).Error; err != nil {
		return fmt.Errorf("failed to delete check record for dock %s: %w", dockID, err)
	}
	return nil
}

func (s *gormStore) ReplaceExpiring(ctx context.Context, rows []model.ExpiringLed) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.ExpiringLed{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace to_expire: %w", err)
	}
	return nil
}

func (s *gormStore) ReplaceReweigh(ctx context.Context, rows []model.ReweighLed) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.ReweighLed{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace for_reweigh: %w", err)
	}
	return nil
}

func (s *gormStore) ListExpiring(ctx context.Context) ([]model.ExpiringLed, error) {
	var rows []model.ExpiringLed
	if err := s.db.WithContext(ctx).Order("rank").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list to_expire: %w", err)
	}
	return rows, nil
}

func (s *gormStore) ListReweigh(ctx context.Context) ([]model.ReweighLed, error) {
	var rows []model.ReweighLed
	if err := s.db.WithContext(ctx).Order("rank").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list for_reweigh: %w", err)
	}
	return rows, nil
}
