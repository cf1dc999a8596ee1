// Package resourcetest holds the behaviour every resource.Repository implementation must share.
package resourcetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"crudserver/internal/core/domain"
	"crudserver/internal/core/service/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRepositoryContract runs the shared storage adapter checks. newRepo must return an empty repository;
// missingID must be a well-formed id that no record will ever get on that backend.
func RunRepositoryContract(t *testing.T, newRepo func(t *testing.T) resource.Repository, missingID string) {
	t.Run("insert then get returns the input", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.InsertUser(ctx, domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		user, err := repo.GetUserByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.User{ID: id, Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)}, user)
	})

	t.Run("duplicate email is a constraint violation", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.InsertUser(ctx, domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)})
		require.NoError(t, err)

		_, err = repo.InsertUser(ctx, domain.NewUser{Name: "Otra Ana", Email: "ana@x.com", Age: domain.IntPtr(31)})
		assert.ErrorIs(t, err, resource.ErrDuplicateEmail)

		users, err := repo.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("missing and malformed ids are not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, id := range []string{missingID, "not-an-id"} {
			_, err := repo.GetUserByID(ctx, id)
			assert.ErrorIs(t, err, resource.ErrRecordNotFound, "id %q", id)

			affected, err := repo.DeleteUserByID(ctx, id)
			assert.NoError(t, err)
			assert.Zero(t, affected)
		}
	})

	t.Run("search is a case-insensitive substring match", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, u := range []domain.NewUser{
			{Name: "María", Email: "maria@x.com", Age: domain.IntPtr(30)},
			{Name: "Mario", Email: "mario@x.com", Age: domain.IntPtr(40)},
			{Name: "Pedro", Email: "pedro@x.com", Age: domain.IntPtr(28)},
			{Name: "100% Real", Email: "real@x.com", Age: domain.IntPtr(50)},
		} {
			_, err := repo.InsertUser(ctx, u)
			require.NoError(t, err)
		}

		users, err := repo.SearchUsersByName(ctx, "MAR")
		require.NoError(t, err)
		assert.Len(t, users, 2)

		users, err = repo.SearchUsersByName(ctx, "%")
		require.NoError(t, err)
		assert.Len(t, users, 1, "wildcards in the term are literal")

		users, err = repo.SearchUsersByName(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("update applies only the patched fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.InsertUser(ctx, domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)})
		require.NoError(t, err)
		otherID, err := repo.InsertUser(ctx, domain.NewUser{Name: "Bea", Email: "bea@x.com", Age: domain.IntPtr(31)})
		require.NoError(t, err)

		name, email := "Ana B", "ana.b@x.com"
		updated, affected, err := repo.UpdateUserByID(ctx, id, domain.UserPatch{Name: &name, Email: &email})
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)
		assert.Equal(t, domain.User{ID: id, Name: "Ana B", Email: "ana.b@x.com", Age: domain.IntPtr(30)}, updated)

		updated, affected, err = repo.UpdateUserByID(ctx, id, domain.UserPatch{Age: domain.IntPtr(0)})
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		want := domain.User{ID: id, Name: "Ana B", Email: "ana.b@x.com", Age: domain.IntPtr(0)}
		assert.Equal(t, want, updated)

		got, err := repo.GetUserByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		// an empty patch still counts as a match
		updated, affected, err = repo.UpdateUserByID(ctx, id, domain.UserPatch{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)
		assert.Equal(t, want, updated)

		_, _, err = repo.UpdateUserByID(ctx, otherID, domain.UserPatch{Email: &email})
		assert.ErrorIs(t, err, resource.ErrDuplicateEmail)

		_, affected, err = repo.UpdateUserByID(ctx, missingID, domain.UserPatch{Name: &name})
		require.NoError(t, err)
		assert.Zero(t, affected)

		_, affected, err = repo.UpdateUserByID(ctx, "not-an-id", domain.UserPatch{Name: &name})
		require.NoError(t, err)
		assert.Zero(t, affected)
	})

	t.Run("concurrent patches on different fields both land", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.InsertUser(ctx, domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)})
		require.NoError(t, err)

		const rounds = 10
		for i := 0; i < rounds; i++ {
			name := fmt.Sprintf("Bea %d", i)
			age := 40 + i

			var wg sync.WaitGroup
			errs := make([]error, 2)
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _, errs[0] = repo.UpdateUserByID(ctx, id, domain.UserPatch{Name: &name})
			}()
			go func() {
				defer wg.Done()
				_, _, errs[1] = repo.UpdateUserByID(ctx, id, domain.UserPatch{Age: &age})
			}()
			wg.Wait()

			require.NoError(t, errs[0])
			require.NoError(t, errs[1])

			got, err := repo.GetUserByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domain.User{ID: id, Name: name, Email: "ana@x.com", Age: &age}, got)
		}
	})

	t.Run("comments are listed newest first with the owner name", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		ownerID, err := repo.InsertUser(ctx, domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)})
		require.NoError(t, err)
		otherID, err := repo.InsertUser(ctx, domain.NewUser{Name: "Bea", Email: "bea@x.com", Age: domain.IntPtr(31)})
		require.NoError(t, err)

		_, err = repo.InsertComment(ctx, ownerID, domain.NewComment{Content: "old", CreatedAt: base})
		require.NoError(t, err)
		_, err = repo.InsertComment(ctx, ownerID, domain.NewComment{Content: "new", CreatedAt: base.Add(time.Minute)})
		require.NoError(t, err)
		_, err = repo.InsertComment(ctx, otherID, domain.NewComment{Content: "not mine", CreatedAt: base})
		require.NoError(t, err)

		comments, err := repo.ListCommentsWithOwnerName(ctx, ownerID)
		require.NoError(t, err)
		require.Len(t, comments, 2)

		assert.Equal(t, "new", comments[0].Content)
		assert.Equal(t, "old", comments[1].Content)
		for _, c := range comments {
			assert.Equal(t, ownerID, c.OwnerID)
			assert.Equal(t, "Ana", c.OwnerName)
		}
		assert.True(t, comments[1].CreatedAt.Equal(base))
	})

	t.Run("comment update and delete require the right owner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		ownerID, err := repo.InsertUser(ctx, domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)})
		require.NoError(t, err)
		otherID, err := repo.InsertUser(ctx, domain.NewUser{Name: "Bea", Email: "bea@x.com", Age: domain.IntPtr(31)})
		require.NoError(t, err)

		commentID, err := repo.InsertComment(ctx, ownerID, domain.NewComment{Content: "hi", CreatedAt: time.Now().UTC()})
		require.NoError(t, err)

		affected, err := repo.UpdateCommentForOwner(ctx, otherID, commentID, "stolen")
		require.NoError(t, err)
		assert.Zero(t, affected)

		affected, err = repo.DeleteCommentForOwner(ctx, otherID, commentID)
		require.NoError(t, err)
		assert.Zero(t, affected)

		comments, err := repo.ListCommentsWithOwnerName(ctx, ownerID)
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, "hi", comments[0].Content)

		affected, err = repo.UpdateCommentForOwner(ctx, ownerID, commentID, "edited")
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		affected, err = repo.DeleteCommentForOwner(ctx, ownerID, commentID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		comments, err = repo.ListCommentsWithOwnerName(ctx, ownerID)
		require.NoError(t, err)
		assert.Empty(t, comments)
	})

	t.Run("deleting a user removes its comments", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		ownerID, err := repo.InsertUser(ctx, domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)})
		require.NoError(t, err)
		_, err = repo.InsertComment(ctx, ownerID, domain.NewComment{Content: "hi", CreatedAt: time.Now().UTC()})
		require.NoError(t, err)

		affected, err := repo.DeleteUserByID(ctx, ownerID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		_, err = repo.GetUserByID(ctx, ownerID)
		assert.ErrorIs(t, err, resource.ErrRecordNotFound)

		comments, err := repo.ListCommentsWithOwnerName(ctx, ownerID)
		require.NoError(t, err)
		assert.Empty(t, comments)
	})
}
