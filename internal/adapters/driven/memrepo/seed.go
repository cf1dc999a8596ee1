package memrepo

import (
	"encoding/json"
	"fmt"
	"io"

	"crudserver/internal/core/domain"
)

type seedUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   *int   `json:"age"`
}

type seedFile struct {
	Users []seedUser `json:"users"`
}

// ReadSeed decodes a {"users": [...]} document, as piped on stdin.
func ReadSeed(r io.Reader) ([]domain.NewUser, error) {
	var f seedFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("could not decode seed data: %w", err)
	}

	users := make([]domain.NewUser, 0, len(f.Users))
	for _, u := range f.Users {
		users = append(users, domain.NewUser{Name: u.Name, Email: u.Email, Age: u.Age})
	}
	return users, nil
}
