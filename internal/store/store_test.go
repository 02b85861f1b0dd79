package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/models"
	"github.com/example/licenseportal/internal/utils"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMemory() *MemoryStore {
	s := NewMemoryStore([]string{"admins", "administrators"})
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestPrepareHashesAndDefaults(t *testing.T) {
	in := &models.Account{Email: " Jane@Example.com ", Password: "plain-pass"}
	a, err := prepare(in, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", a.Email)
	assert.Equal(t, "jane@example.com", a.Username)
	assert.Equal(t, models.RoleApplicant, a.Role)
	assert.NotEmpty(t, a.ID)
	assert.True(t, utils.IsHashed(a.Password))
	assert.True(t, utils.CheckPassword(a.Password, "plain-pass"))

	// the input is left alone
	assert.Empty(t, in.ID)
	assert.Equal(t, "plain-pass", in.Password)

	again, err := prepare(&a, fixedNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, a.Password, again.Password, "an existing hash must not be hashed again")
	assert.Equal(t, fixedNow, again.CreatedAt)
	assert.Equal(t, fixedNow.Add(time.Minute), again.UpdatedAt)
}

func TestRecordWritesBothNames(t *testing.T) {
	a := &models.Account{
		Name:     "Jane Roe",
		Email:    "jane@example.com",
		Username: "jane",
		Password: "$2a$10$abc",
		Role:     models.RoleAdmin,
		Verification: &models.OneTimeCode{
			Value:     "123456",
			ExpiresAt: fixedNow,
		},
	}
	rec := toRecord(a)

	assert.Equal(t, rec.Name, rec.FullName)
	assert.Equal(t, rec.Email, rec.EmailAddress)
	assert.Equal(t, rec.Password, rec.PasswordHash)
	assert.Equal(t, rec.Username, rec.UserName)
	assert.True(t, rec.IsAdmin)
	require.NotNil(t, rec.EmailOTP)
	require.NotNil(t, rec.OTPExpires)
	assert.Nil(t, rec.PasswordResetOTP)
	assert.Nil(t, rec.PasswordResetExpires)
	assert.Nil(t, rec.NationalID)
}

func TestRecordReadsLegacyNames(t *testing.T) {
	otp := "654321"
	rec := accountRecord{
		FullName:     "Old Timer",
		EmailAddress: "Old@Example.com",
		PasswordHash: "$2a$10$legacy",
		UserName:     "oldtimer",
		Role:         "user",
		IsAdmin:      true,
		EmailOTP:     &otp,
	}
	a := rec.toAccount()

	assert.Equal(t, "Old Timer", a.Name)
	assert.Equal(t, "old@example.com", a.Email)
	assert.Equal(t, "$2a$10$legacy", a.Password)
	assert.Equal(t, "oldtimer", a.Username)
	assert.Equal(t, models.RoleAdmin, a.Role)
	assert.Nil(t, a.Verification, "a code without expiry is treated as absent")
}

func TestMemorySaveAndFindCaseInsensitive(t *testing.T) {
	s := newMemory()
	ctx := context.Background()

	a := &models.Account{Name: "Jane", Email: "Jane@Example.com", Password: "secret1"}
	require.NoError(t, s.Save(ctx, a))

	got, err := s.FindByEmail(ctx, "JANE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.True(t, utils.CheckPassword(got.Password, "secret1"))

	_, err = s.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFindsLegacyOnlyEmail(t *testing.T) {
	s := newMemory()
	s.records["legacy-1"] = accountRecord{
		BaseModel:    models.BaseModel{ID: "legacy-1"},
		FullName:     "Legacy",
		EmailAddress: "Legacy@Example.com",
		UserName:     "legacy",
	}

	got, err := s.FindByEmail(context.Background(), "legacy@example.com")
	require.NoError(t, err)
	assert.Equal(t, "legacy-1", got.ID)
	assert.Equal(t, "Legacy", got.Name)
}

func TestMemoryUpdateKeepsID(t *testing.T) {
	s := newMemory()
	ctx := context.Background()

	a := &models.Account{Email: "jane@example.com", Password: "secret1"}
	require.NoError(t, s.Save(ctx, a))
	id := a.ID

	a.Name = "Jane Updated"
	require.NoError(t, s.Save(ctx, a))

	got, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane Updated", got.Name)
	assert.Len(t, s.records, 1)
}

func TestMemoryDuplicateFields(t *testing.T) {
	s := newMemory()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &models.Account{Email: "a@example.com", Username: "alpha", NationalID: "AB123"}))

	err := s.Save(ctx, &models.Account{Email: "A@example.com"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindDuplicate, e.Kind)
	assert.Equal(t, "email", e.Field)

	err = s.Save(ctx, &models.Account{Email: "b@example.com", Username: "Alpha"})
	e, _ = apperr.As(err)
	assert.Equal(t, "username", e.Field)

	err = s.Save(ctx, &models.Account{Email: "c@example.com", NationalID: "AB123"})
	e, _ = apperr.As(err)
	assert.Equal(t, "nationalId", e.Field)
}

func TestMemoryFailedSaveLeavesAccountUntouched(t *testing.T) {
	s := newMemory()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &models.Account{Email: "a@example.com"}))

	a := &models.Account{Email: " A@Example.com ", Password: "plain-pass"}
	err := s.Save(ctx, a)
	require.Error(t, err)
	assert.Empty(t, a.ID)
	assert.Equal(t, "plain-pass", a.Password)
	assert.Equal(t, " A@Example.com ", a.Email)
	assert.True(t, a.CreatedAt.IsZero())

	a.Email = "b@example.com"
	require.NoError(t, s.Save(ctx, a))
	assert.NotEmpty(t, a.ID)
	assert.True(t, utils.IsHashed(a.Password))
	assert.Equal(t, fixedNow, a.CreatedAt)
}

func TestMemoryLegacyAdminOrder(t *testing.T) {
	s := newMemory()
	s.AddLegacyAdmin("administrators", "adm-2", "Second", "boss@example.com", "$2a$10$two", "passwordHash")
	s.AddLegacyAdmin("admins", "adm-1", "First", "Boss@example.com", "$2a$10$one", "password")

	rec, err := s.FindLegacyAdmin(context.Background(), "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admins", rec.Collection)
	assert.Equal(t, "adm-1", rec.Account.ID)
	assert.Equal(t, models.RoleAdmin, rec.Account.Role)

	s2 := newMemory()
	s2.AddLegacyAdmin("administrators", "adm-2", "Second", "boss@example.com", "$2a$10$two", "passwordHash")
	rec, err = s2.FindLegacyAdmin(context.Background(), "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, "administrators", rec.Collection)
	assert.Equal(t, "$2a$10$two", rec.Account.Password)

	_, err = s2.FindLegacyAdmin(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryList(t *testing.T) {
	s := newMemory()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &models.Account{Name: "Ann Admin", Email: "ann@example.com", Role: models.RoleAdmin}))
	require.NoError(t, s.Save(ctx, &models.Account{Name: "Bob", Email: "bob@example.com"}))
	require.NoError(t, s.Save(ctx, &models.Account{Name: "Eve Examiner", Email: "eve@example.com", Role: models.RoleExaminer}))

	all, total, err := s.List(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 2)

	admins, total, err := s.List(ctx, ListFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "ann@example.com", admins[0].Email)

	found, _, err := s.List(ctx, ListFilter{Search: "EXAM"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "eve@example.com", found[0].Email)

	none, total, err := s.List(ctx, ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Empty(t, none)
}
