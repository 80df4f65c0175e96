package memory

import (
	"context"
	"sync"

	"github.com/bookmarket/addrvault/api/internal/core/domain"
)

type rowKey struct {
	table domain.Table
	id    string
}

type row struct {
	columns map[domain.Column]any
	version int
}

type listing struct {
	sellerID     string
	sold         bool
	availability string
}

// Store is an in-process stand-in for Postgres. It implements the address,
// profile and listing repositories and is used for local runs and tests.
type Store struct {
	mu       sync.RWMutex
	rows     map[rowKey]*row
	admins   map[string]bool
	listings []listing
}

func NewStore() *Store {
	return &Store{rows: map[rowKey]*row{}, admins: map[string]bool{}}
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}

// PutRow creates an empty row so that it can later be written to.
func (s *Store) PutRow(table domain.Table, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.row(table, id)
}

// PutProfile creates a profiles row with the given admin flag.
func (s *Store) PutProfile(id string, isAdmin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.row(domain.TableProfiles, id)
	s.admins[id] = isAdmin
}

// PutRaw stores an arbitrary column value, bypassing serialization.
// version 0 leaves the version column empty.
func (s *Store) PutRaw(target domain.AddressTarget, value any, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.row(target.Table, target.TargetID)
	r.columns[target.Column] = value
	r.version = version
}

// AddListing records a book owned by sellerID.
func (s *Store) AddListing(sellerID string, sold bool, availability string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append(s.listings, listing{sellerID: sellerID, sold: sold, availability: availability})
}

func (s *Store) row(table domain.Table, id string) *row {
	k := rowKey{table: table, id: id}
	r, ok := s.rows[k]
	if !ok {
		r = &row{columns: map[domain.Column]any{}}
		s.rows[k] = r
	}
	return r
}

func (s *Store) FetchBundle(ctx context.Context, target domain.AddressTarget) (*domain.StoredAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[rowKey{table: target.Table, id: target.TargetID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	v, ok := r.columns[target.Column]
	if !ok || v == nil {
		return nil, domain.ErrNotFound
	}
	return &domain.StoredAddress{Bundle: v, RecordVersion: r.version}, nil
}

func (s *Store) SaveBundle(ctx context.Context, target domain.AddressTarget, bundle string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[rowKey{table: target.Table, id: target.TargetID}]
	if !ok {
		return domain.ErrNotFound
	}
	r.columns[target.Column] = bundle
	r.version = version
	return nil
}

func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.rows[rowKey{table: domain.TableProfiles, id: userID}]; !ok {
		return false, domain.ErrNotFound
	}
	return s.admins[userID], nil
}

func (s *Store) HasAvailableListing(ctx context.Context, sellerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listings {
		if l.sellerID == sellerID && !l.sold && l.availability == "available" {
			return true, nil
		}
	}
	return false, nil
}
