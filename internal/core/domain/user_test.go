package domain_test

import (
	"crudserver/internal/core/domain"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserPatchApply(t *testing.T) {
	base := domain.User{ID: "1", Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)}

	testCases := map[string]struct {
		patch domain.UserPatch
		want  domain.User
	}{
		"empty patch keeps everything": {
			patch: domain.UserPatch{},
			want:  base,
		},
		"name only": {
			patch: domain.UserPatch{Name: strPtr("Ana María")},
			want:  domain.User{ID: "1", Name: "Ana María", Email: "ana@x.com", Age: domain.IntPtr(30)},
		},
		"zero age is applied": {
			patch: domain.UserPatch{Age: domain.IntPtr(0)},
			want:  domain.User{ID: "1", Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(0)},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got := tc.patch.Apply(base)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUserPatchApplyDoesNotAliasAge(t *testing.T) {
	base := domain.User{ID: "1", Age: domain.IntPtr(30)}

	got := domain.UserPatch{}.Apply(base)
	*got.Age = 99

	assert.Equal(t, 30, *base.Age)
}

func TestUserPatchIsEmpty(t *testing.T) {
	assert.True(t, domain.UserPatch{}.IsEmpty())
	assert.False(t, domain.UserPatch{Email: strPtr("")}.IsEmpty())
}

func strPtr(s string) *string { return &s }
