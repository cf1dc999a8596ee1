package resource_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"crudserver/internal/adapters/driven/memrepo"
	"crudserver/internal/core/domain"
	"crudserver/internal/core/service/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seedUsers = []domain.NewUser{
	{Name: "Juan", Email: "juan@email.com", Age: domain.IntPtr(25)},
	{Name: "María", Email: "maria@email.com", Age: domain.IntPtr(30)},
	{Name: "Pedro", Email: "pedro@email.com", Age: domain.IntPtr(28)},
}

func setupRepository(t *testing.T) *memrepo.Repository {
	t.Helper()

	repo := memrepo.New()
	require.NoError(t, repo.Seed(context.Background(), seedUsers))
	return repo
}

// brokenRepository fails every call the way a lost database connection would.
type brokenRepository struct {
	resource.Repository
}

var errConnectionLost = errors.New("connection lost")

func (brokenRepository) ListUsers(context.Context) ([]domain.User, error) {
	return nil, errConnectionLost
}
func (brokenRepository) GetUserByID(context.Context, string) (domain.User, error) {
	return domain.User{}, errConnectionLost
}
func (brokenRepository) InsertUser(context.Context, domain.NewUser) (string, error) {
	return "", errConnectionLost
}
func (brokenRepository) UpdateUserByID(context.Context, string, domain.UserPatch) (domain.User, int64, error) {
	return domain.User{}, 0, errConnectionLost
}
func (brokenRepository) DeleteUserByID(context.Context, string) (int64, error) {
	return 0, errConnectionLost
}
func (brokenRepository) DeleteCommentForOwner(context.Context, string, string) (int64, error) {
	return 0, errConnectionLost
}

func TestUserServiceGetOne(t *testing.T) {
	testCases := map[string]struct {
		userID   string
		wantUser domain.User
		wantKind resource.ErrorKind
		wantErr  error
	}{
		"ok": {
			userID:   "1",
			wantUser: domain.User{ID: "1", Name: "Juan", Email: "juan@email.com", Age: domain.IntPtr(25)},
		},
		"error - empty id": {
			userID:   "",
			wantKind: resource.KindBadRequest,
			wantErr:  resource.ErrEmptyRecordID,
		},
		"error - unknown id": {
			userID:   "42",
			wantKind: resource.KindNotFound,
			wantErr:  resource.ErrUserNotFound,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			svc := resource.NewUserService(setupRepository(t))

			user, err := svc.GetOne(context.Background(), tc.userID)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, tc.wantKind, resource.Kind(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantUser, user)
		})
	}
}

func TestUserServiceSearchByName(t *testing.T) {
	svc := resource.NewUserService(setupRepository(t))
	ctx := context.Background()

	users, err := svc.SearchByName(ctx, "  ped ")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Pedro", users[0].Name)

	users, err = svc.SearchByName(ctx, "zzz")
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	_, err = svc.SearchByName(ctx, "   ")
	assert.ErrorIs(t, err, resource.ErrEmptySearchTerm)
	assert.Equal(t, resource.KindBadRequest, resource.Kind(err))
}

func TestUserServiceCreate(t *testing.T) {
	testCases := map[string]struct {
		user     domain.NewUser
		wantKind resource.ErrorKind
		wantErr  error
	}{
		"ok": {
			user: domain.NewUser{Name: " Ana ", Email: "ana@x.com", Age: domain.IntPtr(30)},
		},
		"error - missing name": {
			user:     domain.NewUser{Email: "ana@x.com", Age: domain.IntPtr(30)},
			wantKind: resource.KindBadRequest,
			wantErr:  resource.ErrMissingFields,
		},
		"error - blank email": {
			user:     domain.NewUser{Name: "Ana", Email: "   ", Age: domain.IntPtr(30)},
			wantKind: resource.KindBadRequest,
			wantErr:  resource.ErrMissingFields,
		},
		"error - missing age": {
			user:     domain.NewUser{Name: "Ana", Email: "ana@x.com"},
			wantKind: resource.KindBadRequest,
			wantErr:  resource.ErrMissingFields,
		},
		"error - zero age": {
			user:     domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(0)},
			wantKind: resource.KindBadRequest,
			wantErr:  resource.ErrMissingFields,
		},
		"error - negative age": {
			user:     domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(-3)},
			wantKind: resource.KindBadRequest,
			wantErr:  resource.ErrInvalidAge,
		},
		"error - age above int32": {
			user:     domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(math.MaxInt32 + 1)},
			wantKind: resource.KindBadRequest,
			wantErr:  resource.ErrInvalidAge,
		},
		"error - duplicate email": {
			user:     domain.NewUser{Name: "Otro Juan", Email: "juan@email.com", Age: domain.IntPtr(40)},
			wantKind: resource.KindConstraintViolation,
			wantErr:  resource.ErrDuplicateEmail,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			repo := setupRepository(t)
			svc := resource.NewUserService(repo)

			newID, err := svc.Create(context.Background(), tc.user)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, tc.wantKind, resource.Kind(err))

				users, _ := repo.ListUsers(context.Background())
				assert.Len(t, users, len(seedUsers), "nothing is stored on failure")
				return
			}

			require.NoError(t, err)

			stored, err := svc.GetOne(context.Background(), newID)
			require.NoError(t, err)
			assert.Equal(t, domain.User{ID: newID, Name: tc.user.Name, Email: tc.user.Email, Age: tc.user.Age}, stored)
		})
	}
}

func TestUserServiceUpdate(t *testing.T) {
	name := "Juan Carlos"
	blank := "  "
	padded := " Juan "
	otherEmail := "maria@email.com"

	testCases := map[string]struct {
		userID   string
		patch    domain.UserPatch
		wantUser domain.User
		wantKind resource.ErrorKind
		wantErr  error
	}{
		"ok - empty patch leaves the user unchanged": {
			userID:   "1",
			patch:    domain.UserPatch{},
			wantUser: domain.User{ID: "1", Name: "Juan", Email: "juan@email.com", Age: domain.IntPtr(25)},
		},
		"ok - partial update": {
			userID:   "1",
			patch:    domain.UserPatch{Name: &name},
			wantUser: domain.User{ID: "1", Name: "Juan Carlos", Email: "juan@email.com", Age: domain.IntPtr(25)},
		},
		"ok - age can be set to zero": {
			userID:   "1",
			patch:    domain.UserPatch{Age: domain.IntPtr(0)},
			wantUser: domain.User{ID: "1", Name: "Juan", Email: "juan@email.com", Age: domain.IntPtr(0)},
		},
		"error - blank name": {
			userID:   "1",
			patch:    domain.UserPatch{Name: &blank},
			wantKind: resource.KindBadRequest,
			wantErr:  resource.ErrMissingFields,
		},
		"ok - surrounding spaces are kept": {
			userID:   "1",
			patch:    domain.UserPatch{Name: &padded},
			wantUser: domain.User{ID: "1", Name: " Juan ", Email: "juan@email.com", Age: domain.IntPtr(25)},
		},
		"error - age above int32": {
			userID:   "1",
			patch:    domain.UserPatch{Age: domain.IntPtr(math.MaxInt32 + 1)},
			wantKind: resource.KindBadRequest,
			wantErr:  resource.ErrInvalidAge,
		},
		"error - unknown user": {
			userID:   "99",
			patch:    domain.UserPatch{Name: &name},
			wantKind: resource.KindNotFound,
			wantErr:  resource.ErrUserNotFound,
		},
		"error - email taken": {
			userID:   "1",
			patch:    domain.UserPatch{Email: &otherEmail},
			wantKind: resource.KindConstraintViolation,
			wantErr:  resource.ErrDuplicateEmail,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			svc := resource.NewUserService(setupRepository(t))

			updated, err := svc.Update(context.Background(), tc.userID, tc.patch)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, tc.wantKind, resource.Kind(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantUser, updated)

			stored, err := svc.GetOne(context.Background(), tc.userID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantUser, stored)
		})
	}
}

func TestUserServiceRemove(t *testing.T) {
	svc := resource.NewUserService(setupRepository(t))
	ctx := context.Background()

	require.NoError(t, svc.Remove(ctx, "2"))

	_, err := svc.GetOne(ctx, "2")
	assert.ErrorIs(t, err, resource.ErrUserNotFound)

	err = svc.Remove(ctx, "2")
	assert.ErrorIs(t, err, resource.ErrUserNotFound)
	assert.Equal(t, resource.KindNotFound, resource.Kind(err))
}

func TestUserServiceAdapterFailures(t *testing.T) {
	svc := resource.NewUserService(brokenRepository{})
	ctx := context.Background()

	_, err := svc.ListAll(ctx)
	assert.ErrorIs(t, err, errConnectionLost)
	assert.Equal(t, resource.KindInternal, resource.Kind(err))

	_, err = svc.GetOne(ctx, "1")
	assert.ErrorIs(t, err, errConnectionLost)
	assert.Equal(t, resource.KindInternal, resource.Kind(err))

	_, err = svc.Create(ctx, domain.NewUser{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)})
	assert.Equal(t, resource.KindInternal, resource.Kind(err))

	_, err = svc.Update(ctx, "1", domain.UserPatch{Age: domain.IntPtr(31)})
	assert.ErrorIs(t, err, errConnectionLost)
	assert.Equal(t, resource.KindInternal, resource.Kind(err))

	err = svc.Remove(ctx, "1")
	assert.Equal(t, resource.KindInternal, resource.Kind(err))
}

// slowReadRepository delays reads like a remote database would, widening any gap between a read and a write.
type slowReadRepository struct {
	*memrepo.Repository
}

func (r slowReadRepository) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	time.Sleep(2 * time.Millisecond)
	return r.Repository.GetUserByID(ctx, userID)
}

func TestUserServiceConcurrentPatchesKeepEachOther(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		svc := resource.NewUserService(slowReadRepository{setupRepository(t)})
		name := "Bea"

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = svc.Update(ctx, "1", domain.UserPatch{Name: &name})
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = svc.Update(ctx, "1", domain.UserPatch{Age: domain.IntPtr(31)})
		}()
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		stored, err := svc.GetOne(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, domain.User{ID: "1", Name: "Bea", Email: "juan@email.com", Age: domain.IntPtr(31)}, stored)
	}
}

func TestListAllNeverNil(t *testing.T) {
	svc := resource.NewUserService(memrepo.New())

	users, err := svc.ListAll(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}
