package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/models"
)

const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
)

// GormStore keeps accounts in postgres through gorm.
type GormStore struct {
	db               *gorm.DB
	adminCollections []string
	log              *zap.Logger
	now              func() time.Time
}

// NewGormStore constructs a GormStore. adminCollections are the legacy
// administrator tables, searched in order.
func NewGormStore(db *gorm.DB, adminCollections []string, log *zap.Logger) *GormStore {
	return &GormStore{db: db, adminCollections: adminCollections, log: log, now: time.Now}
}

// Models lists the tables AutoMigrate must create for this store.
func Models() []interface{} {
	return []interface{}{&accountRecord{}}
}

func (s *GormStore) Save(ctx context.Context, a *models.Account) error {
	isNew := a.ID == ""
	p, err := prepare(a, s.now().UTC())
	if err != nil {
		return fmt.Errorf("prepare account: %w", err)
	}

	rec := toRecord(&p)
	tx := s.db.WithContext(ctx)
	if isNew {
		err = tx.Create(rec).Error
	} else {
		err = tx.Save(rec).Error
	}
	if err != nil {
		if field := duplicateField(err); field != "" {
			return apperr.Duplicate(field)
		}
		return fmt.Errorf("save account: %w", err)
	}
	*a = p
	return nil
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	var rec accountRecord
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = ? OR LOWER(email_address) = ?", email, email).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return rec.toAccount(), nil
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	var rec accountRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return rec.toAccount(), nil
}

// legacyAdminRow is scanned from tables whose shape predates the accounts table.
// Columns a given table lacks are left empty.
type legacyAdminRow struct {
	ID           string `gorm:"column:id"`
	Name         string `gorm:"column:name"`
	FullName     string `gorm:"column:full_name"`
	Email        string `gorm:"column:email"`
	Password     string `gorm:"column:password"`
	PasswordHash string `gorm:"column:password_hash"`
}

func (s *GormStore) FindLegacyAdmin(ctx context.Context, email string) (*AdminRecord, error) {
	email = models.NormalizeEmail(email)
	for _, table := range s.adminCollections {
		var row legacyAdminRow
		err := s.db.WithContext(ctx).Table(table).Where("LOWER(email) = ?", email).Take(&row).Error
		switch {
		case err == nil:
			return &AdminRecord{
				Account:    adminAccount(row.ID, row.Name, row.FullName, row.Email, row.Password, row.PasswordHash),
				Collection: table,
			}, nil
		case errors.Is(err, gorm.ErrRecordNotFound), isPgCode(err, pgUndefinedTable), isPgCode(err, pgUndefinedColumn):
			s.log.Debug("legacy admin lookup missed", zap.String("collection", table), zap.Error(err))
		default:
			return nil, fmt.Errorf("find legacy admin in %s: %w", table, err)
		}
	}
	return nil, ErrNotFound
}

func (s *GormStore) List(ctx context.Context, f ListFilter) ([]models.Account, int64, error) {
	query := s.db.WithContext(ctx).Model(&accountRecord{})
	if f.Role != "" {
		if f.Role.IsAdmin() {
			query = query.Where("role = ? OR is_admin = ?", string(f.Role), true)
		} else {
			query = query.Where("role = ? AND is_admin = ?", string(f.Role), false)
		}
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(username) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	var recs []accountRecord
	if err := query.Order("created_at desc").Limit(f.Limit).Offset(f.Offset).Find(&recs).Error; err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}

	out := make([]models.Account, 0, len(recs))
	for i := range recs {
		out = append(out, *recs[i].toAccount())
	}
	return out, total, nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// duplicateField maps a unique violation onto the input field that collided.
func duplicateField(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return ""
	}
	if pgErr.ConstraintName != "" {
		return fieldForIndex(pgErr.ConstraintName)
	}
	return fieldForIndex(pgErr.Detail)
}

func fieldForIndex(s string) string {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "national"):
		return "nationalId"
	case strings.Contains(s, "username"), strings.Contains(s, "user_name"):
		return "username"
	case strings.Contains(s, "email"):
		return "email"
	}
	return "email"
}
