package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/models"
)

func newMongo(mt *mtest.T) *MongoStore {
	s := NewMongoStore(mt.DB, []string{"admins", "administrators"}, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestEmailFilterMatchesBothNames(t *testing.T) {
	want := bson.M{"$or": bson.A{
		bson.M{"email": "jane@example.com"},
		bson.M{"emailAddress": "jane@example.com"},
	}}
	assert.Equal(t, want, emailFilter("  Jane@Example.COM "))
}

func TestListFilter(t *testing.T) {
	rx := primitive.Regex{Pattern: `jane\.roe`, Options: "i"}
	search := bson.M{"$or": bson.A{
		bson.M{"name": rx},
		bson.M{"fullName": rx},
		bson.M{"email": rx},
		bson.M{"username": rx},
	}}

	cases := map[string]struct {
		filter ListFilter
		want   bson.M
	}{
		"empty": {ListFilter{}, bson.M{}},
		"admin role includes legacy flag": {
			ListFilter{Role: models.RoleAdmin},
			bson.M{"$and": bson.A{bson.M{"$or": bson.A{bson.M{"role": "admin"}, bson.M{"isAdmin": true}}}}},
		},
		"other role excludes flagged admins": {
			ListFilter{Role: models.RoleExaminer},
			bson.M{"$and": bson.A{bson.M{"role": "examiner", "isAdmin": bson.M{"$ne": true}}}},
		},
		"search is quoted": {
			ListFilter{Search: "jane.roe"},
			bson.M{"$and": bson.A{search}},
		},
		"role and search": {
			ListFilter{Role: models.RoleApplicant, Search: "jane.roe"},
			bson.M{"$and": bson.A{bson.M{"role": "applicant", "isAdmin": bson.M{"$ne": true}}, search}},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, listFilter(tc.filter))
		})
	}
}

func TestFieldForMongoDuplicateMessage(t *testing.T) {
	msg := `E11000 duplicate key error collection: licenseportal.accounts index: username_1 dup key: { username: "jane" }`
	assert.Equal(t, "username", fieldForIndex(msg))
	assert.Equal(t, "nationalId", fieldForIndex("index: nationalId_1 dup key"))
}

func TestMongoFindByEmail(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("legacy names", func(mt *mtest.T) {
		s := newMongo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.accounts", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "acc-1"},
			{Key: "fullName", Value: "Legacy Name"},
			{Key: "emailAddress", Value: "jane@example.com"},
			{Key: "passwordHash", Value: "$2a$10$hash"},
			{Key: "isAdmin", Value: true},
		}))

		a, err := s.FindByEmail(context.Background(), "Jane@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "acc-1", a.ID)
		assert.Equal(t, "Legacy Name", a.Name)
		assert.Equal(t, "jane@example.com", a.Email)
		assert.Equal(t, "$2a$10$hash", a.Password)
		assert.Equal(t, models.RoleAdmin, a.Role)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "accounts", started.Command.Lookup("find").StringValue())
		assert.Equal(t, "jane@example.com", started.Command.Lookup("filter", "$or", "1", "emailAddress").StringValue())
		assert.Equal(t, int32(2), started.Command.Lookup("collation", "strength").Int32())
	})

	mt.Run("not found", func(mt *mtest.T) {
		s := newMongo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.accounts", mtest.FirstBatch))

		_, err := s.FindByEmail(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("server error", func(mt *mtest.T) {
		s := newMongo(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query", Name: "BadValue"}))

		_, err := s.FindByEmail(context.Background(), "jane@example.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "bad query")
	})
}

func TestMongoLegacyAdminSearchesCollectionsInOrder(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("second collection", func(mt *mtest.T) {
		s := newMongo(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.admins", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, "test.administrators", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: oid},
				{Key: "fullName", Value: "Chief"},
				{Key: "email", Value: "chief@example.com"},
				{Key: "passwordHash", Value: "$2a$10$chief"},
			}),
		)

		rec, err := s.FindLegacyAdmin(context.Background(), "Chief@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "administrators", rec.Collection)
		assert.Equal(t, oid.Hex(), rec.Account.ID)
		assert.Equal(t, "Chief", rec.Account.Name)
		assert.Equal(t, "$2a$10$chief", rec.Account.Password)
		assert.True(t, rec.Account.IsAdmin())

		first := mt.GetStartedEvent()
		require.NotNil(t, first)
		assert.Equal(t, "admins", first.Command.Lookup("find").StringValue())
		assert.Equal(t, "chief@example.com", first.Command.Lookup("filter", "email").StringValue())
		second := mt.GetStartedEvent()
		require.NotNil(t, second)
		assert.Equal(t, "administrators", second.Command.Lookup("find").StringValue())
	})

	mt.Run("first collection wins", func(mt *mtest.T) {
		s := newMongo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.admins", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "adm-1"},
			{Key: "name", Value: "First"},
			{Key: "email", Value: "boss@example.com"},
			{Key: "password", Value: "$2a$10$one"},
		}))

		rec, err := s.FindLegacyAdmin(context.Background(), "boss@example.com")
		require.NoError(t, err)
		assert.Equal(t, "admins", rec.Collection)
		assert.Equal(t, "adm-1", rec.Account.ID)
		assert.Equal(t, "$2a$10$one", rec.Account.Password)

		require.NotNil(t, mt.GetStartedEvent())
		assert.Nil(t, mt.GetStartedEvent(), "later collections are not queried")
	})

	mt.Run("missing everywhere", func(mt *mtest.T) {
		s := newMongo(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.admins", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, "test.administrators", mtest.FirstBatch),
		)

		_, err := s.FindLegacyAdmin(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMongoSave(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate email", func(mt *mtest.T) {
		s := newMongo(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: `E11000 duplicate key error collection: test.accounts index: email_1 dup key: { email: "jane@example.com" }`,
		}))

		a := &models.Account{Email: "jane@example.com", Password: "plain-pass"}
		err := s.Save(context.Background(), a)
		e, ok := apperr.As(err)
		require.True(t, ok, err)
		assert.Equal(t, apperr.KindDuplicate, e.Kind)
		assert.Equal(t, "email", e.Field)

		assert.Empty(t, a.ID)
		assert.Equal(t, "plain-pass", a.Password)
	})

	mt.Run("insert writes both names", func(mt *mtest.T) {
		s := newMongo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		a := &models.Account{Name: "Jane Roe", Email: "Jane@Example.com", Password: "plain-pass"}
		require.NoError(t, s.Save(context.Background(), a))
		assert.NotEmpty(t, a.ID)
		assert.Equal(t, fixedNow, a.CreatedAt)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "accounts", started.Command.Lookup("insert").StringValue())
		doc := started.Command.Lookup("documents", "0").Document()
		assert.Equal(t, a.ID, doc.Lookup("_id").StringValue())
		assert.Equal(t, "jane@example.com", doc.Lookup("emailAddress").StringValue())
		assert.Equal(t, "Jane Roe", doc.Lookup("fullName").StringValue())
		assert.Equal(t, a.Password, doc.Lookup("passwordHash").StringValue())
	})

	mt.Run("update upserts by id", func(mt *mtest.T) {
		s := newMongo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		a := &models.Account{Email: "jane@example.com", Password: "plain-pass"}
		a.ID = "acc-1"
		require.NoError(t, s.Save(context.Background(), a))

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "accounts", started.Command.Lookup("update").StringValue())
		assert.Equal(t, "acc-1", started.Command.Lookup("updates", "0", "q", "_id").StringValue())
		assert.True(t, started.Command.Lookup("updates", "0", "upsert").Boolean())
	})
}
