package resource

import (
	"context"
	"crudserver/internal/core/domain"
)

// Repository is the storage adapter contract shared by every backend.
//
// Lookups that match nothing return ErrRecordNotFound. Inserts that break the email uniqueness rule return an
// error wrapping ErrDuplicateEmail. Update and delete report the number of affected records; zero means nothing
// matched and is not an error at this level. UpdateUserByID applies the patch atomically and returns the record
// as stored afterwards; an empty patch just reads it.
type Repository interface {
	// Users
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUserByID(ctx context.Context, userID string) (domain.User, error)
	SearchUsersByName(ctx context.Context, term string) ([]domain.User, error)
	InsertUser(ctx context.Context, user domain.NewUser) (string, error)
	UpdateUserByID(ctx context.Context, userID string, patch domain.UserPatch) (domain.User, int64, error)
	DeleteUserByID(ctx context.Context, userID string) (int64, error)

	// Comments, always scoped by owner
	ListCommentsWithOwnerName(ctx context.Context, ownerID string) ([]domain.Comment, error)
	InsertComment(ctx context.Context, ownerID string, comment domain.NewComment) (string, error)
	UpdateCommentForOwner(ctx context.Context, ownerID, commentID, content string) (int64, error)
	DeleteCommentForOwner(ctx context.Context, ownerID, commentID string) (int64, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
