package history

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"equipment-analytics-api/models"
)

// openTestDB connects to HISTORY_TEST_DSN; the tests are skipped without it.
func openTestDB(t *testing.T) *GormStore {
	t.Helper()
	dsn := os.Getenv("HISTORY_TEST_DSN")
	if dsn == "" {
		t.Skip("HISTORY_TEST_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	s := NewGormStore(db)
	require.NoError(t, s.AutoMigrate())
	return s
}

func TestOwnerLockKey(t *testing.T) {
	assert.NotEqual(t, ownerLockKey(1), ownerLockKey(2))
	assert.Equal(t, advisoryNamespace, ownerLockKey(3)>>32)
}

func TestEvictOldest(t *testing.T) {
	tests := []struct {
		name string
		ids  []uint64
		want []uint64
	}{
		{"empty", nil, nil},
		{"room left", []uint64{1, 2, 3, 4}, nil},
		{"full", []uint64{1, 2, 3, 4, 5}, []uint64{1}},
		{"over full", []uint64{3, 4, 5, 6, 7, 8, 9}, []uint64{3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evictOldest(tt.ids)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(tt.ids)-len(got)+1, MaxPerOwner)
		})
	}
}

// TestGormStoreBoundedHistory needs PostgreSQL for the advisory lock; run it
// with HISTORY_TEST_DSN pointing at a disposable database.
func TestGormStoreBoundedHistory(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()
	owner := uint(900000 + os.Getpid()%1000)
	t.Cleanup(func() {
		s.db.Where("owner_id = ?", owner).Delete(&models.Dataset{})
	})

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Put(ctx, newDataset(owner, fmt.Sprintf("g-%d.csv", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	items, err := s.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, items, MaxPerOwner)

	var count int64
	require.NoError(t, s.db.Model(&models.Dataset{}).Where("owner_id = ?", owner).Count(&count).Error)
	assert.EqualValues(t, MaxPerOwner, count)

	_, err = s.Get(ctx, owner+1, items[0].ID)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	require.NoError(t, s.Delete(ctx, owner, items[0].ID))
	assert.ErrorAs(t, s.Delete(ctx, owner, items[0].ID), &nf)
}
