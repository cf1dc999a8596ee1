package domain

// User is a top-level resource. ID is assigned by the storage backend.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   *int   `json:"age,omitempty"`
}

// NewUser holds the fields accepted when creating a user.
type NewUser struct {
	Name  string
	Email string
	Age   *int
}

// UserPatch is a partial update. A nil field is left untouched, a non-nil field is applied even when it
// holds a zero value.
type UserPatch struct {
	Name  *string
	Email *string
	Age   *int
}

func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Age == nil
}

// Apply returns a copy of u with the provided fields replaced.
func (p UserPatch) Apply(u User) User {
	merged := u.Clone()

	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Email != nil {
		merged.Email = *p.Email
	}
	if p.Age != nil {
		age := *p.Age
		merged.Age = &age
	}

	return merged
}

// Clone copies u so callers never share its Age pointer.
func (u User) Clone() User {
	c := u
	if u.Age != nil {
		age := *u.Age
		c.Age = &age
	}
	return c
}

// IntPtr is a small helper for building optional ages.
func IntPtr(v int) *int {
	return &v
}
