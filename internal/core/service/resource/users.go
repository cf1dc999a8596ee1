package resource

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"crudserver/internal/core/domain"
)

type userService struct {
	repo Repository
}

func NewUserService(repo Repository) UserService {
	return &userService{
		repo: repo,
	}
}

var _ UserService = (*userService)(nil)

func (s *userService) ListAll(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}

	return nonNil(users), nil
}

func (s *userService) GetOne(ctx context.Context, userID string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, ErrEmptyRecordID
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, userLookupError("GetOne", userID, err)
	}

	return user, nil
}

func (s *userService) SearchByName(ctx context.Context, term string) ([]domain.User, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptySearchTerm
	}

	users, err := s.repo.SearchUsersByName(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("SearchByName: %w", err)
	}

	// zero matches is an empty list, never a not-found
	return nonNil(users), nil
}

func (s *userService) Create(ctx context.Context, user domain.NewUser) (string, error) {
	if blank(user.Name) || blank(user.Email) || user.Age == nil || *user.Age == 0 {
		return "", fmt.Errorf("Create: %w (name, email, age)", ErrMissingFields)
	}

	if !validAge(*user.Age) {
		return "", fmt.Errorf("Create: %w: %d", ErrInvalidAge, *user.Age)
	}

	newID, err := s.repo.InsertUser(ctx, user)
	if err != nil {
		return "", fmt.Errorf("Create: %w", err)
	}

	return newID, nil
}

func (s *userService) Update(ctx context.Context, userID string, patch domain.UserPatch) (domain.User, error) {
	if userID == "" {
		return domain.User{}, ErrEmptyRecordID
	}

	if patch.Name != nil && blank(*patch.Name) {
		return domain.User{}, fmt.Errorf("Update: %w: name cannot be empty", ErrMissingFields)
	}

	if patch.Email != nil && blank(*patch.Email) {
		return domain.User{}, fmt.Errorf("Update: %w: email cannot be empty", ErrMissingFields)
	}

	if patch.Age != nil && !validAge(*patch.Age) {
		return domain.User{}, fmt.Errorf("Update: %w: %d", ErrInvalidAge, *patch.Age)
	}

	updated, affected, err := s.repo.UpdateUserByID(ctx, userID, patch)
	if err != nil {
		return domain.User{}, fmt.Errorf("Update: %w", err)
	}

	if affected == 0 {
		return domain.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	return updated, nil
}

func (s *userService) Remove(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyRecordID
	}

	affected, err := s.repo.DeleteUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("Remove: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	return nil
}

// userLookupError turns a repository miss into ErrUserNotFound and wraps anything else as an adapter failure.
func userLookupError(op, userID string, err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// validAge keeps ages inside what every backend can store.
func validAge(age int) bool {
	return age >= 0 && age <= math.MaxInt32
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
