package resource

import (
	"context"
	"crudserver/internal/core/domain"
)

type UserService interface {
	// Queries
	ListAll(ctx context.Context) ([]domain.User, error)
	GetOne(ctx context.Context, userID string) (domain.User, error)
	SearchByName(ctx context.Context, term string) ([]domain.User, error)

	// Commands
	Create(ctx context.Context, user domain.NewUser) (string, error)
	Update(ctx context.Context, userID string, patch domain.UserPatch) (domain.User, error)
	Remove(ctx context.Context, userID string) error
}

// CommentService is scoped to an owning user on every call.
type CommentService interface {
	ListForOwner(ctx context.Context, ownerID string) ([]domain.Comment, error)
	Create(ctx context.Context, ownerID string, comment domain.NewComment) (string, error)
	Update(ctx context.Context, ownerID, commentID, content string) error
	Remove(ctx context.Context, ownerID, commentID string) error
}
