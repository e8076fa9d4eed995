package repository

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/account-service/internal/model"
)

// UsersCollection is the collection name used by the document store.
const UsersCollection = "users"

// MongoUserRepo is the document-database credential store. Users are stored
// one document per user, keyed by the same UUID string the SQL backend uses.
type MongoUserRepo struct{ Coll *mongo.Collection }

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{Coll: db.Collection(UsersCollection)}
}

var _ UserStore = (*MongoUserRepo)(nil)

// EnsureIndexes creates the unique indexes on username and email. It is
// idempotent and meant to run once at startup.
func (r *MongoUserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.Coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return pkgerrors.Wrap(err, "create user indexes")
}

func (r *MongoUserRepo) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := r.Coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return pkgerrors.Wrap(err, "insert user")
	}
	return nil
}

func (r *MongoUserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (model.User, error) {
	filter, ok := loginFilter(username, email)
	if !ok {
		return model.User{}, ErrNotFound
	}
	return r.findOne(ctx, filter)
}

func (r *MongoUserRepo) SetRefreshToken(ctx context.Context, id, digest string) error {
	res, err := r.Coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"refreshToken": digest, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return pkgerrors.Wrap(err, "set refresh token")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapRefreshToken filters on the current digest so the match and the
// write happen in one single-document operation.
func (r *MongoUserRepo) SwapRefreshToken(ctx context.Context, id, oldDigest, newDigest string) error {
	res, err := r.Coll.UpdateOne(ctx, bson.M{"_id": id, "refreshToken": oldDigest}, bson.M{
		"$set": bson.M{"refreshToken": newDigest, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return pkgerrors.Wrap(err, "swap refresh token")
	}
	if res.MatchedCount == 0 {
		return ErrStaleToken
	}
	return nil
}

// ClearRefreshToken removes the field from the document.
func (r *MongoUserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := r.Coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$unset": bson.M{"refreshToken": 1},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	})
	return pkgerrors.Wrap(err, "clear refresh token")
}

func (r *MongoUserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.Coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"password": hash, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return pkgerrors.Wrap(err, "update password")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepo) UpdateDetails(ctx context.Context, id, fullname, email string) (model.User, error) {
	return r.updateAndGet(ctx, id, bson.M{"fullname": fullname, "email": email})
}

func (r *MongoUserRepo) UpdateAvatar(ctx context.Context, id, url string) (model.User, error) {
	return r.updateAndGet(ctx, id, bson.M{"avatar": url})
}

func (r *MongoUserRepo) UpdateCoverImage(ctx context.Context, id, url string) (model.User, error) {
	return r.updateAndGet(ctx, id, bson.M{"coverImage": url})
}

func (r *MongoUserRepo) updateAndGet(ctx context.Context, id string, set bson.M) (model.User, error) {
	set["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u model.User
	err := r.Coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return model.User{}, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return model.User{}, ErrDuplicate
	default:
		return model.User{}, pkgerrors.Wrap(err, "update user")
	}
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (model.User, error) {
	var u model.User
	if err := r.Coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, pkgerrors.Wrap(err, "find user")
	}
	return u, nil
}

// loginFilter builds {$or: [{username}, {email}]} from the non-blank
// arguments; ok is false when both are blank.
func loginFilter(username, email string) (bson.M, bool) {
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, false
	}
	return bson.M{"$or": or}, true
}
