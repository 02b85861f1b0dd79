package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/example/licenseportal/internal/apperr"
	"github.com/example/licenseportal/internal/models"
)

const accountsCollection = "accounts"

// caseInsensitive makes equality matches ignore case on legacy documents that were
// written before emails were normalized.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// MongoStore keeps accounts in a mongo collection.
type MongoStore struct {
	db               *mongo.Database
	col              *mongo.Collection
	adminCollections []string
	log              *zap.Logger
	now              func() time.Time
}

func NewMongoStore(db *mongo.Database, adminCollections []string, log *zap.Logger) *MongoStore {
	return &MongoStore{
		db:               db,
		col:              db.Collection(accountsCollection),
		adminCollections: adminCollections,
		log:              log,
		now:              time.Now,
	}
}

// EnsureIndexes creates the unique indexes Save relies on for Duplicate detection.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_1").SetUnique(true).SetCollation(caseInsensitive)},
		{Keys: bson.D{{Key: "emailAddress", Value: 1}}, Options: options.Index().SetName("emailAddress_1").SetCollation(caseInsensitive)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName("username_1").SetUnique(true)},
		{Keys: bson.D{{Key: "nationalId", Value: 1}}, Options: options.Index().SetName("nationalId_1").SetUnique(true).SetSparse(true)},
	})
	return err
}

func (s *MongoStore) Save(ctx context.Context, a *models.Account) error {
	isNew := a.ID == ""
	p, err := prepare(a, s.now().UTC())
	if err != nil {
		return fmt.Errorf("prepare account: %w", err)
	}

	rec := toRecord(&p)
	if isNew {
		_, err = s.col.InsertOne(ctx, rec)
	} else {
		_, err = s.col.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Duplicate(fieldForIndex(err.Error()))
		}
		return fmt.Errorf("save account: %w", err)
	}
	*a = p
	return nil
}

func emailFilter(email string) bson.M {
	email = models.NormalizeEmail(email)
	return bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"emailAddress": email},
	}}
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var rec accountRecord
	err := s.col.FindOne(ctx, emailFilter(email), options.FindOne().SetCollation(caseInsensitive)).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return rec.toAccount(), nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	var rec accountRecord
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return rec.toAccount(), nil
}

func (s *MongoStore) FindLegacyAdmin(ctx context.Context, email string) (*AdminRecord, error) {
	email = models.NormalizeEmail(email)
	for _, name := range s.adminCollections {
		var doc bson.M
		err := s.db.Collection(name).
			FindOne(ctx, bson.M{"email": email}, options.FindOne().SetCollation(caseInsensitive)).
			Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			s.log.Debug("legacy admin lookup missed", zap.String("collection", name))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find legacy admin in %s: %w", name, err)
		}
		return &AdminRecord{
			Account: adminAccount(
				docID(doc["_id"]),
				docString(doc, "name"),
				docString(doc, "fullName"),
				docString(doc, "email"),
				docString(doc, "password"),
				docString(doc, "passwordHash"),
			),
			Collection: name,
		}, nil
	}
	return nil, ErrNotFound
}

func (s *MongoStore) List(ctx context.Context, f ListFilter) ([]models.Account, int64, error) {
	filter := listFilter(f)

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(f.Offset))
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var recs []accountRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, 0, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]models.Account, 0, len(recs))
	for i := range recs {
		out = append(out, *recs[i].toAccount())
	}
	return out, total, nil
}

func listFilter(f ListFilter) bson.M {
	var and bson.A
	if f.Role != "" {
		if f.Role.IsAdmin() {
			and = append(and, bson.M{"$or": bson.A{bson.M{"role": string(f.Role)}, bson.M{"isAdmin": true}}})
		} else {
			and = append(and, bson.M{"role": string(f.Role), "isAdmin": bson.M{"$ne": true}})
		}
	}
	if f.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"name": rx},
			bson.M{"fullName": rx},
			bson.M{"email": rx},
			bson.M{"username": rx},
		}})
	}
	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

func docString(doc bson.M, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func docID(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
