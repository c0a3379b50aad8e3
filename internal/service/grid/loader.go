package grid

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"forestgrid/internal/model"
	pg "forestgrid/internal/postgres"
)

// LoadFromCSV bulk-parses a grid source with one row per cell:
// index,minLng,minLat,maxLng,maxLat. Malformed rows (missing fields,
// non-numeric bounds) are skipped and counted, never fatal.
func (s *Service) LoadFromCSV(r io.Reader) (model.LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // row validation handles field counts
	reader.TrimLeadingSpace = true

	var cells []*model.Cell
	skipped := 0
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Printf("grid source line %d unreadable, skipping: %v", line, err)
			skipped++
			continue
		}

		cell, err := parseCellRow(record)
		if err != nil {
			log.Printf("grid source line %d invalid, skipping: %v", line, err)
			skipped++
			continue
		}
		cells = append(cells, cell)
	}

	return s.load(cells, skipped), nil
}

// LoadFromCSVFile opens path and loads it via LoadFromCSV.
func (s *Service) LoadFromCSVFile(path string) (model.LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.LoadResult{}, fmt.Errorf("failed to open grid source %s: %w", path, err)
	}
	defer f.Close()
	return s.LoadFromCSV(f)
}

// LoadFromPG loads the grid from PostgreSQL through the shared row
// validation, so skip accounting behaves the same as the CSV path.
func (s *Service) LoadFromPG() (model.LoadResult, error) {
	rows, err := pg.FetchAllCells()
	if err != nil {
		return model.LoadResult{}, fmt.Errorf("failed to load grid cells from PostgreSQL: %w", err)
	}

	var cells []*model.Cell
	skipped := 0
	for _, row := range rows {
		cell, err := validateCell(row.Index, row.MinLng, row.MinLat, row.MaxLng, row.MaxLat)
		if err != nil {
			log.Printf("grid cell row %d invalid, skipping: %v", row.Index, err)
			skipped++
			continue
		}
		cells = append(cells, cell)
	}

	return s.load(cells, skipped), nil
}

// parseCellRow converts one tabular record into a cell.
func parseCellRow(record []string) (*model.Cell, error) {
	if len(record) < 5 {
		return nil, fmt.Errorf("expected 5 fields, got %d", len(record))
	}

	index, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return nil, fmt.Errorf("bad index %q: %w", record[0], err)
	}

	bounds := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad bound %q: %w", record[i+1], err)
		}
		bounds[i] = v
	}

	return validateCell(index, bounds[0], bounds[1], bounds[2], bounds[3])
}

// validateCell applies the bound sanity checks shared by every load path.
func validateCell(index int, minLng, minLat, maxLng, maxLat float64) (*model.Cell, error) {
	if minLng > maxLng || minLat > maxLat {
		return nil, fmt.Errorf("inverted bounds for cell %d", index)
	}
	// Zero-area cells cannot be indexed and would never contain a point.
	if minLng == maxLng || minLat == maxLat {
		return nil, fmt.Errorf("zero-area bounds for cell %d", index)
	}
	if minLng < -180 || maxLng > 180 || minLat < -90 || maxLat > 90 {
		return nil, fmt.Errorf("bounds out of range for cell %d", index)
	}
	return model.NewCell(index, minLng, minLat, maxLng, maxLat), nil
}
