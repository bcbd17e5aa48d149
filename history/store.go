// Package history keeps the most recent analysed datasets of every owner.
package history

import (
	"context"
	"fmt"
	"sort"

	"equipment-analytics-api/models"
)

// MaxPerOwner bounds how many datasets an owner keeps. Older uploads are
// evicted first, regardless of how often they are read.
const MaxPerOwner = 5

// Store persists datasets per owner. Put assigns the dataset ID and returns
// the IDs it evicted to stay within MaxPerOwner. Get and Delete report a
// NotFoundError both for unknown IDs and for IDs owned by someone else.
type Store interface {
	Put(ctx context.Context, d *models.Dataset) (evicted []uint64, err error)
	List(ctx context.Context, owner uint) ([]models.Dataset, error)
	Get(ctx context.Context, owner uint, id uint64) (*models.Dataset, error)
	Delete(ctx context.Context, owner uint, id uint64) error
}

type NotFoundError struct {
	ID uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset %d not found", e.ID)
}

func (e *NotFoundError) Kind() string { return "not_found" }

// older orders datasets by upload time, then by ID.
func older(a, b *models.Dataset) bool {
	if !a.UploadedAt.Equal(b.UploadedAt) {
		return a.UploadedAt.Before(b.UploadedAt)
	}
	return a.ID < b.ID
}

func sortOldestFirst(items []models.Dataset) {
	sort.SliceStable(items, func(i, j int) bool { return older(&items[i], &items[j]) })
}

// evictOldest returns the leading ids (oldest first) that must go so that one
// more insert keeps the owner at MaxPerOwner.
func evictOldest(ids []uint64) []uint64 {
	excess := len(ids) - MaxPerOwner + 1
	if excess <= 0 {
		return nil
	}
	return ids[:excess:excess]
}
