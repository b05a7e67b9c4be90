// Package store holds normalized records of one list, indexed by id
package store

import (
	"sort"

	"github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/fingerprint"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// Options controls how a list is loaded
type Options struct {
	// Dedupe drops rows whose content (id excluded) equals an earlier row
	Dedupe bool
	// StrictIDs fails the load when two distinct rows share an id
	StrictIDs bool
}

// LoadReport summarises what happened while building a store
type LoadReport struct {
	Input        int     `json:"input" yaml:"input"`
	Kept         int     `json:"kept" yaml:"kept"`
	Duplicates   int     `json:"duplicates" yaml:"duplicates"`
	DuplicateIDs []int64 `json:"duplicate_ids,omitempty" yaml:"duplicate_ids,omitempty"`
	// Malformed counts field values dropped during normalization. Set by the
	// loader, the store never sees raw values.
	Malformed int `json:"malformed" yaml:"malformed"`
}

// Store is an immutable, id-indexed record list. Records keep their input
// order. When an id occurs on several distinct rows, Get returns the first.
type Store struct {
	kind    models.ListKind
	records []models.Record
	byID    map[int64]int
}

// New builds a store from normalized records
func New(kind models.ListKind, records []models.Record, opts Options) (*Store, LoadReport, error) {
	report := LoadReport{Input: len(records)}
	s := &Store{
		kind:    kind,
		records: make([]models.Record, 0, len(records)),
		byID:    make(map[int64]int, len(records)),
	}

	seen := make(map[string]struct{}, len(records))
	dupIDs := make(map[int64]struct{})
	for _, r := range records {
		if opts.Dedupe {
			fp := fingerprint.Record(r)
			if _, ok := seen[fp]; ok {
				report.Duplicates++
				continue
			}
			seen[fp] = struct{}{}
		}

		if _, ok := s.byID[r.ID]; ok {
			dupIDs[r.ID] = struct{}{}
		} else {
			s.byID[r.ID] = len(s.records)
		}
		s.records = append(s.records, r)
	}
	report.Kept = len(s.records)

	if len(dupIDs) > 0 {
		report.DuplicateIDs = make([]int64, 0, len(dupIDs))
		for id := range dupIDs {
			report.DuplicateIDs = append(report.DuplicateIDs, id)
		}
		sort.Slice(report.DuplicateIDs, func(i, j int) bool { return report.DuplicateIDs[i] < report.DuplicateIDs[j] })

		if opts.StrictIDs {
			return nil, report, errors.NewScreeningErrorf(errors.KindDuplicateReferenceID,
				"%d ids occur on distinct rows, first is %d", len(report.DuplicateIDs), report.DuplicateIDs[0]).AddList(string(kind))
		}
	}

	return s, report, nil
}

// Kind returns the list the store holds
func (s *Store) Kind() models.ListKind {
	return s.kind
}

// Len returns the number of stored rows
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns the stored rows in input order. Callers must not modify them.
func (s *Store) Records() []models.Record {
	return s.records
}

// Get returns the record with the given id
func (s *Store) Get(id int64) (*models.Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.records[i], true
}

// At returns the record at the 1-based row position
func (s *Store) At(row int) (*models.Record, bool) {
	if row < 1 || row > len(s.records) {
		return nil, false
	}
	return &s.records[row-1], true
}

// Subset returns every stored row whose id is in ids, in input order
func (s *Store) Subset(ids []int64) []models.Record {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]models.Record, 0, len(ids))
	for _, r := range s.records {
		if _, ok := want[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// IDs returns every distinct id in ascending order
func (s *Store) IDs() []int64 {
	ids := make([]int64, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
