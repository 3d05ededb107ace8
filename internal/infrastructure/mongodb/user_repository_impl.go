package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ryowuandjanet/go-user-auth/internal/domain/entity"
	"github.com/ryowuandjanet/go-user-auth/internal/domain/repository"
)

// userDocument is the stored shape of a user.
type userDocument struct {
	ID                bson.ObjectID `bson:"_id,omitempty"`
	Email             string        `bson:"email"`
	HashedPassword    string        `bson:"hashed_password"`
	Name              string        `bson:"name,omitempty"`
	IsActive          bool          `bson:"is_active"`
	CreatedAt         time.Time     `bson:"created_at"`
	ResetToken        *string       `bson:"reset_token,omitempty"`
	ResetTokenExpires *time.Time    `bson:"reset_token_expires,omitempty"`
}

func toDocument(u *entity.User) (userDocument, error) {
	d := userDocument{
		Email:             u.Email,
		HashedPassword:    u.Password,
		Name:              u.Name,
		IsActive:          u.IsActive,
		CreatedAt:         u.CreatedAt,
		ResetToken:        u.ResetTokenHash,
		ResetTokenExpires: u.ResetTokenExpires,
	}
	if u.ID != "" {
		oid, err := bson.ObjectIDFromHex(u.ID)
		if err != nil {
			return userDocument{}, err
		}
		d.ID = oid
	}
	return d, nil
}

func (d userDocument) toEntity() *entity.User {
	u := &entity.User{
		ID:                d.ID.Hex(),
		Email:             d.Email,
		Password:          d.HashedPassword,
		Name:              d.Name,
		IsActive:          d.IsActive,
		CreatedAt:         d.CreatedAt,
		ResetTokenHash:    d.ResetToken,
		ResetTokenExpires: d.ResetTokenExpires,
	}
	if u.ResetTokenExpires != nil {
		t := u.ResetTokenExpires.UTC()
		u.ResetTokenExpires = &t
	}
	return u
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	doc, err := toDocument(u)
	if err != nil {
		return oops.Code("MONGO_BAD_ID").With("id", u.ID).Wrap(err)
	}
	if doc.ID.IsZero() {
		doc.ID = bson.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrEmailTaken
		}
		return oops.Code("MONGO_INSERT").With("collection", UsersCollection).Wrap(err)
	}
	u.ID = doc.ID.Hex()
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (*entity.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, oops.Code("MONGO_FIND").With("collection", UsersCollection).Wrap(err)
	}
	return doc.toEntity(), nil
}

// GetByID treats an id that is not a valid ObjectID as unknown.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *UserRepository) List(ctx context.Context, limit int) ([]*entity.User, error) {
	if limit <= 0 || limit > repository.MaxList {
		limit = repository.MaxList
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, oops.Code("MONGO_FIND").With("collection", UsersCollection).Wrap(err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, oops.Code("MONGO_CURSOR").Wrap(err)
	}
	out := make([]*entity.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEntity())
	}
	return out, nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "reset_token", Value: tokenHash},
			{Key: "reset_token_expires", Value: expires.UTC()},
		}}},
	)
	if err != nil {
		return oops.Code("MONGO_UPDATE").With("op", "set_reset_token").Wrap(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func pendingResetFilter(tokenHash string, now time.Time) bson.D {
	return bson.D{
		{Key: "reset_token", Value: tokenHash},
		{Key: "reset_token_expires", Value: bson.D{{Key: "$gt", Value: now.UTC()}}},
	}
}

func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	return r.findOne(ctx, pendingResetFilter(tokenHash, now))
}

func (r *UserRepository) CompleteReset(ctx context.Context, userID, tokenHash, passwordHash string, now time.Time) error {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return repository.ErrNotFound
	}
	filter := append(bson.D{{Key: "_id", Value: oid}}, pendingResetFilter(tokenHash, now)...)
	res, err := r.coll.UpdateOne(ctx, filter, bson.D{
		{Key: "$set", Value: bson.D{{Key: "hashed_password", Value: passwordHash}}},
		{Key: "$unset", Value: bson.D{
			{Key: "reset_token", Value: ""},
			{Key: "reset_token_expires", Value: ""},
		}},
	})
	if err != nil {
		return oops.Code("MONGO_UPDATE").With("op", "complete_reset").Wrap(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}
