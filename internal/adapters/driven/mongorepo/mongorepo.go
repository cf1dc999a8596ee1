// Package mongorepo stores users and comments in MongoDB. Comments live in their own collection and reference
// their owner by ObjectID.
package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"crudserver/internal/core/domain"
	"crudserver/internal/core/service/resource"
	"crudserver/internal/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	commentsCollection = "comments"
)

type userDoc struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Email string             `bson:"email"`
	Age   *int               `bson:"age"`
}

func (d userDoc) toDomain() domain.User {
	return domain.User{ID: d.ID.Hex(), Name: d.Name, Email: d.Email, Age: d.Age}
}

type commentDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
	OwnerID   primitive.ObjectID `bson:"ownerId"`
}

// commentWithOwner is the shape produced by the listing pipeline.
type commentWithOwner struct {
	commentDoc `bson:",inline"`
	OwnerName  string `bson:"ownerName"`
}

type Repository struct {
	client   *mongo.Client
	users    *mongo.Collection
	comments *mongo.Collection
}

var _ resource.Repository = (*Repository)(nil)

// New connects to uri and uses the given database. Like the postgres adapter, an unreachable server at startup
// is only logged.
func New(ctx context.Context, uri, database string) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongorepo: connect: %w", err)
	}

	log := logger.Named("mongorepo")
	if err := client.Ping(ctx, nil); err != nil {
		log.Warn("startup ping failed", logger.Err(err))
	} else {
		log.Info("connected", logger.String("database", database))
	}

	return NewFromDatabase(client.Database(database)), nil
}

// NewFromDatabase builds a repository over an already connected database.
func NewFromDatabase(db *mongo.Database) *Repository {
	return &Repository{
		client:   db.Client(),
		users:    db.Collection(usersCollection),
		comments: db.Collection(commentsCollection),
	}
}

// EnsureIndexes creates the unique email index and the comment owner index.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	})
	if err != nil {
		return fmt.Errorf("mongorepo: users index: %w", err)
	}

	_, err = r.comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("comments_owner_created"),
	})
	if err != nil {
		return fmt.Errorf("mongorepo: comments index: %w", err)
	}

	return nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	return r.findUsers(ctx, bson.D{})
}

func (r *Repository) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	oid, ok := parseID(userID)
	if !ok {
		return domain.User{}, resource.ErrRecordNotFound
	}

	var doc userDoc
	if err := r.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, resource.ErrRecordNotFound
		}
		return domain.User{}, fmt.Errorf("mongorepo: get user: %w", err)
	}

	return doc.toDomain(), nil
}

func (r *Repository) SearchUsersByName(ctx context.Context, term string) ([]domain.User, error) {
	filter := bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}}
	return r.findUsers(ctx, filter)
}

func (r *Repository) findUsers(ctx context.Context, filter any) ([]domain.User, error) {
	cur, err := r.users.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongorepo: find users: %w", err)
	}

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongorepo: find users: %w", err)
	}

	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}

func (r *Repository) InsertUser(ctx context.Context, user domain.NewUser) (string, error) {
	res, err := r.users.InsertOne(ctx, userDoc{Name: user.Name, Email: user.Email, Age: user.Age})
	if err != nil {
		return "", translateWriteError("insert user", err)
	}

	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

// UpdateUserByID sets only the patched fields in one FindOneAndUpdate, so concurrent patches on different
// fields never undo each other.
func (r *Repository) UpdateUserByID(ctx context.Context, userID string, patch domain.UserPatch) (domain.User, int64, error) {
	oid, ok := parseID(userID)
	if !ok {
		return domain.User{}, 0, nil
	}

	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Age != nil {
		set["age"] = *patch.Age
	}

	var (
		doc    userDoc
		result *mongo.SingleResult
	)

	// an empty $set is rejected by the server
	if len(set) == 0 {
		result = r.users.FindOne(ctx, bson.M{"_id": oid})
	} else {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		result = r.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts)
	}

	if err := result.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, 0, nil
		}
		return domain.User{}, 0, translateWriteError("update user", err)
	}

	return doc.toDomain(), 1, nil
}

// DeleteUserByID also removes the user's comments. The two deletes are not atomic; an interrupted cascade
// leaves orphaned comments that are unreachable through the API.
func (r *Repository) DeleteUserByID(ctx context.Context, userID string) (int64, error) {
	oid, ok := parseID(userID)
	if !ok {
		return 0, nil
	}

	res, err := r.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, fmt.Errorf("mongorepo: delete user: %w", err)
	}

	if res.DeletedCount > 0 {
		if _, err := r.comments.DeleteMany(ctx, bson.M{"ownerId": oid}); err != nil {
			return res.DeletedCount, fmt.Errorf("mongorepo: delete user comments: %w", err)
		}
	}

	return res.DeletedCount, nil
}

func (r *Repository) ListCommentsWithOwnerName(ctx context.Context, ownerID string) ([]domain.Comment, error) {
	oid, ok := parseID(ownerID)
	if !ok {
		return []domain.Comment{}, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ownerId": oid}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   "ownerId",
			"foreignField": "_id",
			"as":           "owner",
		}}},
		{{Key: "$unwind", Value: "$owner"}},
		{{Key: "$project", Value: bson.M{
			"content":   1,
			"createdAt": 1,
			"ownerId":   1,
			"ownerName": "$owner.name",
		}}},
	}

	cur, err := r.comments.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongorepo: list comments: %w", err)
	}

	var docs []commentWithOwner
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongorepo: list comments: %w", err)
	}

	comments := make([]domain.Comment, 0, len(docs))
	for _, d := range docs {
		comments = append(comments, domain.Comment{
			ID:        d.ID.Hex(),
			Content:   d.Content,
			CreatedAt: d.CreatedAt.UTC(),
			OwnerID:   d.OwnerID.Hex(),
			OwnerName: d.OwnerName,
		})
	}
	return comments, nil
}

// InsertComment checks the owner exists, standing in for the foreign key the relational backend has.
func (r *Repository) InsertComment(ctx context.Context, ownerID string, comment domain.NewComment) (string, error) {
	oid, ok := parseID(ownerID)
	if !ok {
		return "", resource.ErrRecordNotFound
	}

	n, err := r.users.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return "", fmt.Errorf("mongorepo: insert comment: %w", err)
	}
	if n == 0 {
		return "", resource.ErrRecordNotFound
	}

	res, err := r.comments.InsertOne(ctx, commentDoc{
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		OwnerID:   oid,
	})
	if err != nil {
		return "", fmt.Errorf("mongorepo: insert comment: %w", err)
	}

	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (r *Repository) UpdateCommentForOwner(ctx context.Context, ownerID, commentID, content string) (int64, error) {
	filter, ok := ownedCommentFilter(ownerID, commentID)
	if !ok {
		return 0, nil
	}

	res, err := r.comments.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"content": content}})
	if err != nil {
		return 0, fmt.Errorf("mongorepo: update comment: %w", err)
	}

	return res.MatchedCount, nil
}

func (r *Repository) DeleteCommentForOwner(ctx context.Context, ownerID, commentID string) (int64, error) {
	filter, ok := ownedCommentFilter(ownerID, commentID)
	if !ok {
		return 0, nil
	}

	res, err := r.comments.DeleteOne(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("mongorepo: delete comment: %w", err)
	}

	return res.DeletedCount, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func ownedCommentFilter(ownerID, commentID string) (bson.M, bool) {
	owner, ok := parseID(ownerID)
	if !ok {
		return nil, false
	}
	id, ok := parseID(commentID)
	if !ok {
		return nil, false
	}
	return bson.M{"_id": id, "ownerId": owner}, true
}

func translateWriteError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("mongorepo: %s: %w", op, resource.ErrDuplicateEmail)
	}
	return fmt.Errorf("mongorepo: %s: %w", op, err)
}

func parseID(raw string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
