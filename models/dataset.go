package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"equipment-analytics-api/analytics"
	"equipment-analytics-api/ml"
)

// Dataset is one analysed upload. Summary, CategoryCounts and RowCount are
// derived from RawRecords; Metrics and Models from the outlier-filtered rows.
type Dataset struct {
	ID             uint64                                 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OwnerID        uint                                   `gorm:"column:owner_id;not null;index:idx_datasets_owner_uploaded,priority:1" json:"owner_id"`
	Filename       string                                 `gorm:"column:filename;not null" json:"filename"`
	UploadedAt     time.Time                              `gorm:"column:uploaded_at;not null;index:idx_datasets_owner_uploaded,priority:2" json:"uploaded_at"`
	RowCount       int                                    `gorm:"column:row_count" json:"row_count"`
	CategoryCounts datatypes.JSONType[map[string]int]     `gorm:"column:category_counts;type:jsonb" json:"category_counts"`
	Summary        datatypes.JSONType[analytics.Summary]  `gorm:"column:summary;type:jsonb" json:"summary"`
	Metrics        datatypes.JSONType[ml.Metrics]         `gorm:"column:metrics;type:jsonb" json:"metrics"`
	RawRecords     datatypes.JSONType[[]analytics.Record] `gorm:"column:raw_records;type:jsonb" json:"raw_records"`
	Models         datatypes.JSON                         `gorm:"column:models;type:jsonb" json:"-"`
}

func (Dataset) TableName() string { return "datasets" }

// NewDataset assembles a Dataset from the pipeline outputs. The bundle is
// encoded once here; it is never re-encoded afterwards.
func NewDataset(owner uint, filename string, records []analytics.Record, summary analytics.Summary, metrics ml.Metrics, bundle *ml.Bundle) (*Dataset, error) {
	encoded, err := bundle.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode models: %w", err)
	}
	return &Dataset{
		OwnerID:        owner,
		Filename:       filename,
		RowCount:       summary.Count,
		CategoryCounts: datatypes.NewJSONType(summary.CategoryCounts),
		Summary:        datatypes.NewJSONType(summary),
		Metrics:        datatypes.NewJSONType(metrics),
		RawRecords:     datatypes.NewJSONType(records),
		Models:         datatypes.JSON(encoded),
	}, nil
}

// Bundle decodes the stored models. A dataset stored without models yields
// an empty bundle.
func (d *Dataset) Bundle() (*ml.Bundle, error) {
	if len(d.Models) == 0 || string(d.Models) == "null" {
		return &ml.Bundle{Encoder: &ml.LabelEncoder{}}, nil
	}
	return ml.DecodeBundle(d.Models)
}

// DatasetOverview is the list view of a dataset, without raw rows.
type DatasetOverview struct {
	ID             uint64            `json:"id"`
	Filename       string            `json:"filename"`
	UploadedAt     time.Time         `json:"uploaded_at"`
	RowCount       int               `json:"row_count"`
	CategoryCounts map[string]int    `json:"category_counts"`
	Summary        analytics.Summary `json:"summary"`
	Metrics        ml.Metrics        `json:"metrics"`
}

func (d *Dataset) Overview() DatasetOverview {
	return DatasetOverview{
		ID:             d.ID,
		Filename:       d.Filename,
		UploadedAt:     d.UploadedAt,
		RowCount:       d.RowCount,
		CategoryCounts: d.CategoryCounts.Data(),
		Summary:        d.Summary.Data(),
		Metrics:        d.Metrics.Data(),
	}
}
