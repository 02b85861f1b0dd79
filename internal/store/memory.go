package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/models"
)

// MemoryStore is an in-process AccountStore for development and tests. It stores
// the same dual-named records as the database backends.
type MemoryStore struct {
	mu               sync.RWMutex
	records          map[string]accountRecord
	admins           map[string][]legacyAdminRow
	adminCollections []string
	now              func() time.Time
}

func NewMemoryStore(adminCollections []string) *MemoryStore {
	return &MemoryStore{
		records:          make(map[string]accountRecord),
		admins:           make(map[string][]legacyAdminRow),
		adminCollections: adminCollections,
		now:              time.Now,
	}
}

// AddLegacyAdmin inserts an entry into a legacy administrator collection.
// passwordField selects which historical password name holds the value.
func (s *MemoryStore) AddLegacyAdmin(collection, id, name, email, password string, passwordField string) {
	row := legacyAdminRow{ID: id, Name: name, Email: email}
	if passwordField == "passwordHash" {
		row.PasswordHash = password
	} else {
		row.Password = password
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[collection] = append(s.admins[collection], row)
}

func (s *MemoryStore) Save(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := prepare(a, s.now().UTC())
	if err != nil {
		return fmt.Errorf("prepare account: %w", err)
	}
	rec := toRecord(&p)
	if field := s.collision(rec); field != "" {
		return apperr.Duplicate(field)
	}
	s.records[rec.ID] = *rec
	*a = p
	return nil
}

func (s *MemoryStore) collision(rec *accountRecord) string {
	for id, other := range s.records {
		if id == rec.ID {
			continue
		}
		acc := other.toAccount()
		switch {
		case acc.Email == rec.Email:
			return "email"
		case strings.EqualFold(acc.Username, rec.Username):
			return "username"
		case rec.NationalID != nil && acc.NationalID == *rec.NationalID:
			return "nationalId"
		}
	}
	return ""
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if strings.EqualFold(rec.Email, email) || strings.EqualFold(rec.EmailAddress, email) {
			return rec.toAccount(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.toAccount(), nil
}

func (s *MemoryStore) FindLegacyAdmin(_ context.Context, email string) (*AdminRecord, error) {
	email = models.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.adminCollections {
		for _, row := range s.admins[name] {
			if strings.EqualFold(row.Email, email) {
				return &AdminRecord{
					Account:    adminAccount(row.ID, row.Name, row.FullName, row.Email, row.Password, row.PasswordHash),
					Collection: name,
				}, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context, f ListFilter) ([]models.Account, int64, error) {
	s.mu.RLock()
	var matched []models.Account
	search := strings.ToLower(f.Search)
	for _, rec := range s.records {
		acc := rec.toAccount()
		if f.Role != "" && acc.Role != f.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(acc.Name), search) &&
			!strings.Contains(acc.Email, search) &&
			!strings.Contains(strings.ToLower(acc.Username), search) {
			continue
		}
		matched = append(matched, *acc)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []models.Account{}, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}
