// Package store persists Accounts. Every backend stores each dual-named field under
// both of its historical names and resolves one canonical value on read.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/licenseportal/internal/models"
	"github.com/example/licenseportal/internal/utils"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("record not found")

// AccountStore is the Account Record Store.
type AccountStore interface {
	// Save inserts a new account (empty ID) or overwrites an existing one.
	// A plaintext password is hashed before it is persisted.
	Save(ctx context.Context, a *models.Account) error
	// FindByEmail matches either legacy email field, case-insensitively.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	// FindLegacyAdmin searches the historical administrator collections in
	// configured order. It exists only until those collections are migrated
	// into the accounts store.
	FindLegacyAdmin(ctx context.Context, email string) (*AdminRecord, error)
	List(ctx context.Context, f ListFilter) ([]models.Account, int64, error)
}

// AdminRecord is an administrator found in a legacy admin collection.
type AdminRecord struct {
	Account    *models.Account
	Collection string
}

// ListFilter narrows List results.
type ListFilter struct {
	Role   models.Role
	Search string
	Limit  int
	Offset int
}

// prepare applies the write-time rules shared by every backend to a copy of
// a. Callers write the copy back only once the write succeeds.
func prepare(a *models.Account, now time.Time) (models.Account, error) {
	p := *a
	p.Email = models.NormalizeEmail(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" {
		p.Username = p.Email
	}
	if p.Role == "" {
		p.Role = models.RoleApplicant
	}

	hash, err := utils.EnsureHashed(p.Password)
	if err != nil {
		return models.Account{}, err
	}
	p.Password = hash

	p.EnsureID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return p, nil
}

// reconcile picks the canonical value of a dual-named field.
func reconcile(primary, legacy string) string {
	if primary != "" {
		return primary
	}
	return legacy
}

// accountRecord is the storage shape shared by the postgres and mongo backends.
type accountRecord struct {
	models.BaseModel `bson:",inline"`

	Name         string `gorm:"column:name" bson:"name"`
	FullName     string `gorm:"column:full_name" bson:"fullName"`
	Email        string `gorm:"column:email;uniqueIndex:idx_accounts_email" bson:"email"`
	EmailAddress string `gorm:"column:email_address;index:idx_accounts_email_address" bson:"emailAddress"`
	Password     string `gorm:"column:password" bson:"password"`
	PasswordHash string `gorm:"column:password_hash" bson:"passwordHash"`
	Username     string `gorm:"column:username;uniqueIndex:idx_accounts_username" bson:"username"`
	UserName     string `gorm:"column:user_name" bson:"userName"`

	Role    string `gorm:"column:role;index" bson:"role"`
	IsAdmin bool   `gorm:"column:is_admin" bson:"isAdmin"`

	Phone      string  `gorm:"column:phone" bson:"phone,omitempty"`
	NationalID *string `gorm:"column:national_id;uniqueIndex:idx_accounts_national_id" bson:"nationalId,omitempty"`
	Address    string  `gorm:"column:address" bson:"address,omitempty"`

	IsEmailVerified      bool       `gorm:"column:is_email_verified" bson:"isEmailVerified"`
	EmailOTP             *string    `gorm:"column:email_otp" bson:"emailOTP"`
	OTPExpires           *time.Time `gorm:"column:otp_expires" bson:"otpExpires"`
	PasswordResetOTP     *string    `gorm:"column:password_reset_otp" bson:"passwordResetOTP"`
	PasswordResetExpires *time.Time `gorm:"column:password_reset_expires" bson:"passwordResetExpires"`

	ExaminerDetails models.RoleDetails `gorm:"column:examiner_details;type:jsonb;serializer:json" bson:"examinerDetails,omitempty"`
	OfficerDetails  models.RoleDetails `gorm:"column:traffic_officer_details;type:jsonb;serializer:json" bson:"trafficOfficerDetails,omitempty"`
}

func (accountRecord) TableName() string { return "accounts" }

func toRecord(a *models.Account) *accountRecord {
	r := &accountRecord{
		BaseModel:       a.BaseModel,
		Name:            a.Name,
		FullName:        a.Name,
		Email:           a.Email,
		EmailAddress:    a.Email,
		Password:        a.Password,
		PasswordHash:    a.Password,
		Username:        a.Username,
		UserName:        a.Username,
		Role:            string(a.Role),
		IsAdmin:         a.Role.IsAdmin(),
		Phone:           a.Phone,
		Address:         a.Address,
		IsEmailVerified: a.IsEmailVerified,
		ExaminerDetails: a.ExaminerDetails,
		OfficerDetails:  a.OfficerDetails,
	}
	if a.NationalID != "" {
		id := a.NationalID
		r.NationalID = &id
	}
	r.EmailOTP, r.OTPExpires = splitCode(a.Verification)
	r.PasswordResetOTP, r.PasswordResetExpires = splitCode(a.PasswordReset)
	return r
}

func (r *accountRecord) toAccount() *models.Account {
	a := &models.Account{
		BaseModel:       r.BaseModel,
		Name:            reconcile(r.Name, r.FullName),
		Email:           models.NormalizeEmail(reconcile(r.Email, r.EmailAddress)),
		Password:        reconcile(r.Password, r.PasswordHash),
		Username:        reconcile(r.Username, r.UserName),
		Role:            models.ResolveRole(r.Role, r.IsAdmin),
		Phone:           r.Phone,
		Address:         r.Address,
		IsEmailVerified: r.IsEmailVerified,
		Verification:    joinCode(r.EmailOTP, r.OTPExpires),
		PasswordReset:   joinCode(r.PasswordResetOTP, r.PasswordResetExpires),
		ExaminerDetails: r.ExaminerDetails,
		OfficerDetails:  r.OfficerDetails,
	}
	if r.NationalID != nil {
		a.NationalID = *r.NationalID
	}
	return a
}

func splitCode(c *models.OneTimeCode) (*string, *time.Time) {
	if c == nil {
		return nil, nil
	}
	v, exp := c.Value, c.ExpiresAt.UTC()
	return &v, &exp
}

// joinCode drops half-written pairs: a code without an expiry is no code.
func joinCode(v *string, exp *time.Time) *models.OneTimeCode {
	if v == nil || *v == "" || exp == nil {
		return nil
	}
	return &models.OneTimeCode{Value: *v, ExpiresAt: *exp}
}

// adminAccount builds an Account from a legacy admin entry. Legacy admins carry no
// role column; membership in the collection is what makes them administrators.
func adminAccount(id, name, fullName, email, password, passwordHash string) *models.Account {
	return &models.Account{
		BaseModel:       models.BaseModel{ID: id},
		Name:            reconcile(name, fullName),
		Email:           models.NormalizeEmail(email),
		Username:        models.NormalizeEmail(email),
		Password:        reconcile(password, passwordHash),
		Role:            models.RoleAdmin,
		IsEmailVerified: true,
	}
}
