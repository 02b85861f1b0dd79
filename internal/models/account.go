package models

import (
	"encoding/json"
	"strings"
	"time"
)

// OneTimeCode is an issued code together with its expiry. A nil *OneTimeCode
// means no code is outstanding, so a value never exists without its expiry.
type OneTimeCode struct {
	Value     string    `json:"-" bson:"value"`
	ExpiresAt time.Time `json:"-" bson:"expiresAt"`
}

// RoleDetails is the examiner or traffic-officer payload (badge, jurisdiction,
// specialization, ...). The identity services pass it through untouched.
type RoleDetails map[string]interface{}

// Account is one person able to authenticate: applicant, examiner, traffic officer
// or administrator.
type Account struct {
	BaseModel
	Name     string
	Email    string
	Username string
	// Password holds a bcrypt hash once the account has been saved. Callers may set
	// plaintext before Save; the store hashes anything not already hashed.
	Password string
	Role     Role

	Phone      string
	NationalID string
	Address    string

	IsEmailVerified bool
	Verification    *OneTimeCode
	PasswordReset   *OneTimeCode

	ExaminerDetails RoleDetails
	OfficerDetails  RoleDetails
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Account) IsAdmin() bool { return a.Role.IsAdmin() }

func (a *Account) HasPassword() bool { return a.Password != "" }

// Details returns the role-specific payload for the account's role, if any.
func (a *Account) Details() RoleDetails {
	switch a.Role {
	case RoleExaminer:
		return a.ExaminerDetails
	case RoleTrafficOfficer:
		return a.OfficerDetails
	}
	return nil
}

// accountJSON is the wire shape. Each dual-named field is emitted under both of its
// historical names so older clients keep working; secrets are never emitted.
type accountJSON struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	FullName        string      `json:"fullName"`
	Email           string      `json:"email"`
	EmailAddress    string      `json:"emailAddress"`
	Username        string      `json:"username"`
	UserName        string      `json:"userName"`
	Role            Role        `json:"role"`
	Type            Role        `json:"type"`
	IsAdmin         bool        `json:"isAdmin"`
	IsEmailVerified bool        `json:"isEmailVerified"`
	Phone           string      `json:"phone,omitempty"`
	NationalID      string      `json:"nationalId,omitempty"`
	Address         string      `json:"address,omitempty"`
	Examiner        RoleDetails `json:"examinerDetails,omitempty"`
	Officer         RoleDetails `json:"trafficOfficerDetails,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{
		ID:              a.ID,
		Name:            a.Name,
		FullName:        a.Name,
		Email:           a.Email,
		EmailAddress:    a.Email,
		Username:        a.Username,
		UserName:        a.Username,
		Role:            a.Role,
		Type:            a.Role,
		IsAdmin:         a.IsAdmin(),
		IsEmailVerified: a.IsEmailVerified,
		Phone:           a.Phone,
		NationalID:      a.NationalID,
		Address:         a.Address,
		Examiner:        a.ExaminerDetails,
		Officer:         a.OfficerDetails,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	})
}
