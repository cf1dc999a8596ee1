package domain

import "time"

// Comment is owned by exactly one User and only reachable through its owner.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	OwnerID   string    `json:"ownerId"`
	OwnerName string    `json:"ownerName,omitempty"`
}

// NewComment holds the fields accepted when creating a comment. A zero CreatedAt is filled in by the service.
type NewComment struct {
	Content   string
	CreatedAt time.Time
}
