package resource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crudserver/internal/core/domain"
)

type commentService struct {
	repo Repository
	now  func() time.Time
}

func NewCommentService(repo Repository) CommentService {
	return &commentService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var _ CommentService = (*commentService)(nil)

func (s *commentService) ListForOwner(ctx context.Context, ownerID string) ([]domain.Comment, error) {
	if ownerID == "" {
		return nil, ErrEmptyRecordID
	}

	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, userLookupError("ListForOwner", ownerID, err)
	}

	comments, err := s.repo.ListCommentsWithOwnerName(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListForOwner: %w", err)
	}

	return nonNil(comments), nil
}

// Create checks the owner first and only then inserts. The two calls are not wrapped in a transaction, so an owner
// deleted in between can still receive the comment on backends without a foreign key.
func (s *commentService) Create(ctx context.Context, ownerID string, comment domain.NewComment) (string, error) {
	if ownerID == "" {
		return "", ErrEmptyRecordID
	}

	comment.Content = strings.TrimSpace(comment.Content)
	if comment.Content == "" {
		return "", fmt.Errorf("Create: %w", ErrEmptyContent)
	}

	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return "", userLookupError("Create", ownerID, err)
	}

	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}

	newID, err := s.repo.InsertComment(ctx, ownerID, comment)
	if err != nil {
		return "", fmt.Errorf("Create: %w", err)
	}

	return newID, nil
}

func (s *commentService) Update(ctx context.Context, ownerID, commentID, content string) error {
	if ownerID == "" || commentID == "" {
		return ErrEmptyRecordID
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("Update: %w", ErrEmptyContent)
	}

	affected, err := s.repo.UpdateCommentForOwner(ctx, ownerID, commentID, content)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	// a wrong comment id and a wrong owner id look the same from here
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrCommentNotFound, commentID)
	}

	return nil
}

func (s *commentService) Remove(ctx context.Context, ownerID, commentID string) error {
	if ownerID == "" || commentID == "" {
		return ErrEmptyRecordID
	}

	affected, err := s.repo.DeleteCommentForOwner(ctx, ownerID, commentID)
	if err != nil {
		return fmt.Errorf("Remove: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrCommentNotFound, commentID)
	}

	return nil
}
