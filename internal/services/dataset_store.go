package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"sheetpulse/pkg/contracts/domain"
)

// Dataset origins
const (
	OriginUpload = "upload"
	OriginSource = "source"
)

// Dataset is one normalized table kept for the dashboard
type Dataset struct {
	ID        string
	Origin    string
	Source    string
	CreatedAt time.Time
	Table     *domain.NormalizedTable
}

// DatasetSummary is the listing view of a dataset
type DatasetSummary struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         domain.RecordType `json:"type"`
	Origin       string            `json:"origin"`
	Source       string            `json:"source,omitempty"`
	Rows         int               `json:"rows"`
	Columns      []string          `json:"columns"`
	MonthColumns []string          `json:"month_columns,omitempty"`
	HolderColumn string            `json:"holder_column,omitempty"`
	Warnings     int               `json:"warnings"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Summary returns the listing view of the dataset
func (d *Dataset) Summary() DatasetSummary {
	return DatasetSummary{
		ID:           d.ID,
		Name:         d.Table.Name,
		Type:         d.Table.Type,
		Origin:       d.Origin,
		Source:       d.Source,
		Rows:         d.Table.RowCount(),
		Columns:      d.Table.Columns,
		MonthColumns: d.Table.MonthColumns,
		HolderColumn: d.Table.HolderColumn,
		Warnings:     len(d.Table.Warnings),
		CreatedAt:    d.CreatedAt,
	}
}

// DatasetStore keeps normalized datasets in memory. When more than
// maxRetained datasets are stored the oldest are evicted.
type DatasetStore struct {
	mu          sync.RWMutex
	items       map[string]*Dataset
	order       []string
	maxRetained int
	now         func() time.Time
}

// NewDatasetStore creates an empty store. maxRetained <= 0 disables eviction.
func NewDatasetStore(maxRetained int) *DatasetStore {
	return &DatasetStore{
		items:       make(map[string]*Dataset),
		maxRetained: maxRetained,
		now:         time.Now,
	}
}

// Put stores a table under a fresh ID and returns the dataset together with
// the IDs it evicted.
func (s *DatasetStore) Put(table *domain.NormalizedTable, origin, source string) (*Dataset, []string) {
	ds := &Dataset{
		ID:        uuid.NewString(),
		Origin:    origin,
		Source:    source,
		CreatedAt: s.now().UTC(),
		Table:     table,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[ds.ID] = ds
	s.order = append(s.order, ds.ID)

	var evicted []string
	for s.maxRetained > 0 && len(s.order) > s.maxRetained {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
		evicted = append(evicted, oldest)
	}
	return ds, evicted
}

// Get returns the dataset with the given ID
func (s *DatasetStore) Get(id string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return ds, nil
}

// List returns summaries in insertion order
func (s *DatasetStore) List() []DatasetSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DatasetSummary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].Summary())
	}
	return out
}

// Delete drops a dataset
func (s *DatasetStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored datasets
func (s *DatasetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
