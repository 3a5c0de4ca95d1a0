package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"connectly/internal/database"
	"connectly/internal/model"
)

// userRepository implements UserRepository on the users collection
type userRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{coll: db.Collection(database.UsersCollection)}
}

// Create inserts a new user. Follow lists are stored as empty arrays so that
// $addToSet and $pull always find an array.
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Followers == nil {
		u.Followers = []primitive.ObjectID{}
	}
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}

	_, err := r.coll.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrUserExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var u model.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by their email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

// ExistsByEmail checks if an email is already registered
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return n > 0, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := []model.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, nil
}

func (r *userRepository) GetRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.UserRef, error) {
	refs := make(map[primitive.ObjectID]model.UserRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}

	cur, err := r.coll.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user refs: %w", err)
	}

	var found []model.UserRef
	if err := cur.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode user refs: %w", err)
	}

	for _, ref := range found {
		refs[ref.ID] = ref
	}
	return refs, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, req model.UpdateProfileRequest) (*model.User, error) {
	set := bson.M{}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Avatar != nil {
		set["avatar"] = *req.Avatar
	}
	if req.Bio != nil {
		set["bio"] = *req.Bio
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	var u model.User
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &u, nil
}

func (r *userRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) AddFollowing(ctx context.Context, userID, targetID primitive.ObjectID) error {
	return r.updateGraph(ctx, userID, "$addToSet", "following", targetID)
}

func (r *userRepository) AddFollower(ctx context.Context, userID, followerID primitive.ObjectID) error {
	return r.updateGraph(ctx, userID, "$addToSet", "followers", followerID)
}

func (r *userRepository) RemoveFollowing(ctx context.Context, userID, targetID primitive.ObjectID) error {
	return r.updateGraph(ctx, userID, "$pull", "following", targetID)
}

func (r *userRepository) RemoveFollower(ctx context.Context, userID, followerID primitive.ObjectID) error {
	return r.updateGraph(ctx, userID, "$pull", "followers", followerID)
}

// updateGraph applies a single-field array operator to one user document.
func (r *userRepository) updateGraph(ctx context.Context, userID primitive.ObjectID, op, field string, value primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{op: bson.M{field: value}})
	if err != nil {
		return fmt.Errorf("failed to update %s of user %s: %w", field, userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) PullFromFollowGraph(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"$or": bson.A{bson.M{"followers": id}, bson.M{"following": id}}},
		bson.M{"$pull": bson.M{"followers": id, "following": id}},
	)
	if err != nil {
		return fmt.Errorf("failed to pull user from follow graph: %w", err)
	}
	return nil
}

func (r *userRepository) GetFollowerIDs(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	var u model.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"followers": 1})).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get follower ids: %w", err)
	}
	return u.Followers, nil
}
