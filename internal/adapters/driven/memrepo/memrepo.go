package memrepo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"crudserver/internal/core/domain"
	"crudserver/internal/core/service/resource"
)

// state is everything the repository owns. Mutations never write into a slice that a previous state still
// references, so a saved copy can be restored if persisting fails.
type state struct {
	users         []domain.User
	comments      []domain.Comment
	lastUserID    int64
	lastCommentID int64
}

// Repository keeps users and comments in process memory. All mutations are serialised by one lock.
type Repository struct {
	mu        sync.RWMutex
	state     state
	persister Persister
}

var _ resource.Repository = (*Repository)(nil)

// New returns an empty repository that doesn't persist anything.
func New() *Repository {
	return &Repository{persister: NewNoOpPersister()}
}

// NewWithPersister restores the last snapshot from p (if any) and saves every later change through it.
func NewWithPersister(p Persister) (*Repository, error) {
	repo := &Repository{persister: p}

	snap, found, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("memrepo: could not load snapshot: %w", err)
	}

	if found {
		repo.state = snap.toState()
	}

	return repo, nil
}

// Seed creates the given users in order through the user service, so seeded records obey the same rules as
// created ones. It stops at the first invalid user, keeping the ones before it.
func (r *Repository) Seed(ctx context.Context, users []domain.NewUser) error {
	svc := resource.NewUserService(r)
	for i, u := range users {
		if _, err := svc.Create(ctx, u); err != nil {
			return fmt.Errorf("seed user %d (%s): %w", i, u.Email, err)
		}
	}
	return nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.User, 0, len(r.state.users))
	for _, u := range r.state.users {
		result = append(result, u.Clone())
	}

	return result, nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.userIndex(userID)
	if idx < 0 {
		return domain.User{}, resource.ErrRecordNotFound
	}

	return r.state.users[idx].Clone(), nil
}

func (r *Repository) SearchUsersByName(ctx context.Context, term string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(term)
	result := make([]domain.User, 0)

	for _, u := range r.state.users {
		if strings.Contains(strings.ToLower(u.Name), needle) {
			result = append(result, u.Clone())
		}
	}

	return result, nil
}

func (r *Repository) InsertUser(ctx context.Context, user domain.NewUser) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(user.Email, "") {
		return "", fmt.Errorf("%w: %s", resource.ErrDuplicateEmail, user.Email)
	}

	prev := r.state

	r.state.lastUserID++
	newID := strconv.FormatInt(r.state.lastUserID, 10)

	stored := domain.User{ID: newID, Name: user.Name, Email: user.Email}
	if user.Age != nil {
		stored.Age = domain.IntPtr(*user.Age)
	}

	r.state.users = append(slices.Clip(r.state.users), stored)

	if err := r.persistOrRevert(prev); err != nil {
		return "", err
	}

	return newID, nil
}

// UpdateUserByID merges patch into the stored user while holding the write lock, so concurrent patches on
// different fields never undo each other.
func (r *Repository) UpdateUserByID(ctx context.Context, userID string, patch domain.UserPatch) (domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.userIndex(userID)
	if idx < 0 {
		return domain.User{}, 0, nil
	}

	current := r.state.users[idx]
	if patch.IsEmpty() {
		return current.Clone(), 1, nil
	}

	if patch.Email != nil && r.emailTaken(*patch.Email, current.ID) {
		return domain.User{}, 0, fmt.Errorf("%w: %s", resource.ErrDuplicateEmail, *patch.Email)
	}

	prev := r.state

	updated := patch.Apply(current)

	users := slices.Clone(r.state.users)
	users[idx] = updated
	r.state.users = users

	if err := r.persistOrRevert(prev); err != nil {
		return domain.User{}, 0, err
	}

	return updated.Clone(), 1, nil
}

// DeleteUserByID removes the user together with every comment it owns.
func (r *Repository) DeleteUserByID(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.userIndex(userID)
	if idx < 0 {
		return 0, nil
	}

	prev := r.state
	ownerID := r.state.users[idx].ID

	r.state.users = slices.Delete(slices.Clone(r.state.users), idx, idx+1)
	r.state.comments = slices.DeleteFunc(slices.Clone(r.state.comments), func(c domain.Comment) bool {
		return c.OwnerID == ownerID
	})

	if err := r.persistOrRevert(prev); err != nil {
		return 0, err
	}

	return 1, nil
}

// ListCommentsWithOwnerName returns the owner's comments newest first.
func (r *Repository) ListCommentsWithOwnerName(ctx context.Context, ownerID string) ([]domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.userIndex(ownerID)
	if idx < 0 {
		return []domain.Comment{}, nil
	}
	owner := r.state.users[idx]

	result := make([]domain.Comment, 0)
	for _, c := range r.state.comments {
		if c.OwnerID == owner.ID {
			c.OwnerName = owner.Name
			result = append(result, c)
		}
	}

	slices.SortStableFunc(result, func(a, b domain.Comment) int {
		if byTime := b.CreatedAt.Compare(a.CreatedAt); byTime != 0 {
			return byTime
		}
		return cmp.Compare(numericID(b.ID), numericID(a.ID))
	})

	return result, nil
}

func (r *Repository) InsertComment(ctx context.Context, ownerID string, comment domain.NewComment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.userIndex(ownerID)
	if idx < 0 {
		return "", resource.ErrRecordNotFound
	}

	prev := r.state

	r.state.lastCommentID++
	newID := strconv.FormatInt(r.state.lastCommentID, 10)

	r.state.comments = append(slices.Clip(r.state.comments), domain.Comment{
		ID:        newID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		OwnerID:   r.state.users[idx].ID,
	})

	if err := r.persistOrRevert(prev); err != nil {
		return "", err
	}

	return newID, nil
}

func (r *Repository) UpdateCommentForOwner(ctx context.Context, ownerID, commentID, content string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.commentIndex(ownerID, commentID)
	if idx < 0 {
		return 0, nil
	}

	prev := r.state

	comments := slices.Clone(r.state.comments)
	comments[idx].Content = content
	r.state.comments = comments

	if err := r.persistOrRevert(prev); err != nil {
		return 0, err
	}

	return 1, nil
}

func (r *Repository) DeleteCommentForOwner(ctx context.Context, ownerID, commentID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.commentIndex(ownerID, commentID)
	if idx < 0 {
		return 0, nil
	}

	prev := r.state
	r.state.comments = slices.Delete(slices.Clone(r.state.comments), idx, idx+1)

	if err := r.persistOrRevert(prev); err != nil {
		return 0, err
	}

	return 1, nil
}

func (r *Repository) Ping(ctx context.Context) error { return nil }

func (r *Repository) Close(ctx context.Context) error { return nil }

// userIndex must be called with the lock held.
func (r *Repository) userIndex(userID string) int {
	id, ok := canonicalID(userID)
	if !ok {
		return -1
	}
	return slices.IndexFunc(r.state.users, func(u domain.User) bool { return u.ID == id })
}

// commentIndex matches on the comment id and the owner id together. Must be called with the lock held.
func (r *Repository) commentIndex(ownerID, commentID string) int {
	owner, ok := canonicalID(ownerID)
	if !ok {
		return -1
	}
	id, ok := canonicalID(commentID)
	if !ok {
		return -1
	}
	return slices.IndexFunc(r.state.comments, func(c domain.Comment) bool {
		return c.ID == id && c.OwnerID == owner
	})
}

// emailTaken reports whether another user (not exceptID) already uses email. Must be called with the lock held.
func (r *Repository) emailTaken(email, exceptID string) bool {
	return slices.ContainsFunc(r.state.users, func(u domain.User) bool {
		return u.Email == email && u.ID != exceptID
	})
}

func (r *Repository) persistOrRevert(prev state) error {
	if err := r.persister.Save(newSnapshot(r.state)); err != nil {
		r.state = prev
		return fmt.Errorf("memrepo: could not persist change: %w", err)
	}
	return nil
}

// canonicalID accepts "7" and "07" as the same id and rejects anything that isn't a positive integer.
func canonicalID(raw string) (string, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

func numericID(id string) int64 {
	n, _ := strconv.ParseInt(id, 10, 64)
	return n
}
