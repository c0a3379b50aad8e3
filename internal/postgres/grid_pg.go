package postgres

import (
	"time"
)

// CellPG is the GORM model for one pre-generated grid cell row.
type CellPG struct {
	Index  int     `gorm:"primaryKey;column:cell_index"`
	MinLng float64 `gorm:"not null"`
	MinLat float64 `gorm:"not null"`
	MaxLng float64 `gorm:"not null"`
	MaxLat float64 `gorm:"not null"`

	CreatedAt time.Time
}

// TableName overrides the table name
func (CellPG) TableName() string {
	return "grid_cells"
}

// ClassificationPG is the GORM model for the per-cell land-use label.
type ClassificationPG struct {
	CellIndex      int     `gorm:"primaryKey;column:cell_index"`
	Cultivable     bool    `gorm:"not null"`
	PredictedClass string  `gorm:"size:100"`
	Confidence     float64 `gorm:"not null"`

	CreatedAt time.Time
}

// TableName overrides the table name
func (ClassificationPG) TableName() string {
	return "cell_classifications"
}

// FetchAllCells loads every grid cell row.
func FetchAllCells() ([]*CellPG, error) {
	var rows []*CellPG
	result := DB.Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}

// FetchAllClassifications loads every classification row.
func FetchAllClassifications() ([]*ClassificationPG, error) {
	var rows []*ClassificationPG
	result := DB.Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}
