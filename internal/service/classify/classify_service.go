package classify

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"forestgrid/internal/model"
	pg "forestgrid/internal/postgres"
	"forestgrid/internal/service/storage"
)

// Service holds the per-cell land-use classification set, keyed by cell
// index. A cell with no entry is unclassified and always treated as allowed;
// only an explicit non-cultivable entry blocks interaction.
type Service struct {
	storage storage.Storage[int, *model.Classification]

	loaded      bool
	loadMutex   sync.RWMutex
	skippedRows int
}

// NewService creates an empty classification store.
func NewService() *Service {
	return &Service{
		storage: storage.NewMemoryStorage[int, *model.Classification](),
	}
}

// LoadFromCSV parses a classification source with one row per classified
// cell: index,cultivable(0|1),predictedClass,confidence. Malformed rows are
// skipped and counted.
func (s *Service) LoadFromCSV(r io.Reader) (model.LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []*model.Classification
	skipped := 0
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Printf("classification source line %d unreadable, skipping: %v", line, err)
			skipped++
			continue
		}

		entry, err := parseClassificationRow(record)
		if err != nil {
			log.Printf("classification source line %d invalid, skipping: %v", line, err)
			skipped++
			continue
		}
		entries = append(entries, entry)
	}

	return s.load(entries, skipped), nil
}

// LoadFromCSVFile opens path and loads it via LoadFromCSV.
func (s *Service) LoadFromCSVFile(path string) (model.LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.LoadResult{}, fmt.Errorf("failed to open classification source %s: %w", path, err)
	}
	defer f.Close()
	return s.LoadFromCSV(f)
}

// LoadFromPG loads the classification set from PostgreSQL.
func (s *Service) LoadFromPG() (model.LoadResult, error) {
	rows, err := pg.FetchAllClassifications()
	if err != nil {
		return model.LoadResult{}, fmt.Errorf("failed to load classifications from PostgreSQL: %w", err)
	}

	entries := make([]*model.Classification, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &model.Classification{
			CellIndex:      row.CellIndex,
			Cultivable:     row.Cultivable,
			PredictedClass: row.PredictedClass,
			Confidence:     row.Confidence,
		})
	}

	return s.load(entries, 0), nil
}

func (s *Service) load(entries []*model.Classification, skipped int) model.LoadResult {
	s.loadMutex.Lock()
	defer s.loadMutex.Unlock()

	loaded := 0
	for _, entry := range entries {
		if _, exists := s.storage.Get(entry.CellIndex); exists {
			log.Printf("Duplicate classification for cell %d, skipping row", entry.CellIndex)
			skipped++
			continue
		}
		s.storage.Set(entry.CellIndex, entry)
		loaded++
	}

	s.skippedRows += skipped
	s.loaded = true
	log.Printf("Classification load completed: %d entries, %d rows skipped", loaded, skipped)

	return model.LoadResult{Loaded: loaded, Skipped: skipped}
}

func parseClassificationRow(record []string) (*model.Classification, error) {
	if len(record) < 4 {
		return nil, fmt.Errorf("expected 4 fields, got %d", len(record))
	}

	index, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return nil, fmt.Errorf("bad index %q: %w", record[0], err)
	}

	cultivable, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil || (cultivable != 0 && cultivable != 1) {
		return nil, fmt.Errorf("bad cultivable flag %q", record[1])
	}

	confidence, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
	if err != nil {
		return nil, fmt.Errorf("bad confidence %q: %w", record[3], err)
	}

	return &model.Classification{
		CellIndex:      index,
		Cultivable:     cultivable == 1,
		PredictedClass: strings.TrimSpace(record[2]),
		Confidence:     confidence,
	}, nil
}

// Get returns the classification entry for a cell index.
func (s *Service) Get(index int) (*model.Classification, bool) {
	return s.storage.Get(index)
}

// Blocked reports whether the cell index carries a blocking classification.
// Unclassified cells are never blocked.
func (s *Service) Blocked(index int) bool {
	entry, ok := s.storage.Get(index)
	if !ok {
		return false
	}
	return entry.Blocked()
}

// Count returns the number of classified cells.
func (s *Service) Count() int {
	return s.storage.Count()
}

// SkippedRows returns how many source rows were dropped across all loads.
func (s *Service) SkippedRows() int {
	s.loadMutex.RLock()
	defer s.loadMutex.RUnlock()
	return s.skippedRows
}

// Loaded reports whether a load has completed.
func (s *Service) Loaded() bool {
	s.loadMutex.RLock()
	defer s.loadMutex.RUnlock()
	return s.loaded
}

// Clear drops all entries.
func (s *Service) Clear() {
	s.loadMutex.Lock()
	defer s.loadMutex.Unlock()

	s.storage.Clear()
	s.loaded = false
	s.skippedRows = 0
}
