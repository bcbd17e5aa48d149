package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"equipment-analytics-api/models"
)

// advisoryNamespace is the high half of the per-owner advisory lock key.
const advisoryNamespace int64 = 0x45515631

// GormStore keeps datasets in PostgreSQL. Put serialises writers of the same
// owner with a transaction-scoped advisory lock, so count, evict and insert
// happen as one unit and readers only ever see committed state.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.Dataset{})
}

func ownerLockKey(owner uint) int64 {
	return advisoryNamespace<<32 | int64(uint32(owner))
}

func (s *GormStore) Put(ctx context.Context, d *models.Dataset) ([]uint64, error) {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}

	var evicted []uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", ownerLockKey(d.OwnerID)).Error; err != nil {
			return fmt.Errorf("lock owner %d: %w", d.OwnerID, err)
		}

		var ids []uint64
		if err := tx.Model(&models.Dataset{}).
			Where("owner_id = ?", d.OwnerID).
			Order("uploaded_at ASC, id ASC").
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("list owner datasets: %w", err)
		}

		if evicted = evictOldest(ids); len(evicted) > 0 {
			if err := tx.Where("id IN ?", evicted).Delete(&models.Dataset{}).Error; err != nil {
				return fmt.Errorf("evict datasets: %w", err)
			}
		}

		if err := tx.Create(d).Error; err != nil {
			return fmt.Errorf("insert dataset: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

func (s *GormStore) List(ctx context.Context, owner uint) ([]models.Dataset, error) {
	var out []models.Dataset
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("uploaded_at DESC, id DESC").
		Limit(MaxPerOwner).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return out, nil
}

func (s *GormStore) Get(ctx context.Context, owner uint, id uint64) (*models.Dataset, error) {
	var d models.Dataset
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset %d: %w", id, err)
	}
	return &d, nil
}

func (s *GormStore) Delete(ctx context.Context, owner uint, id uint64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		Delete(&models.Dataset{})
	if res.Error != nil {
		return fmt.Errorf("delete dataset %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}
