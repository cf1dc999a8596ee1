package memrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crudserver/internal/core/domain"
)

const defaultFilePermissions = os.FileMode(0644)

// Persister stores snapshots of the repository. Exported so tests can plug in their own.
type Persister interface {
	Load() (Snapshot, bool, error)
	Save(snap Snapshot) error
}

// Snapshot is the on-disk form of the repository.
type Snapshot struct {
	Users         []domain.User   `json:"users"`
	Comments      []storedComment `json:"comments"`
	LastUserID    int64           `json:"lastUserId"`
	LastCommentID int64           `json:"lastCommentId"`
}

// storedComment leaves the owner name out, it is always resolved from the owning user.
type storedComment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	OwnerID   string    `json:"ownerId"`
}

func newSnapshot(s state) Snapshot {
	comments := make([]storedComment, len(s.comments))
	for i, c := range s.comments {
		comments[i] = storedComment{ID: c.ID, Content: c.Content, CreatedAt: c.CreatedAt, OwnerID: c.OwnerID}
	}

	return Snapshot{
		Users:         s.users,
		Comments:      comments,
		LastUserID:    s.lastUserID,
		LastCommentID: s.lastCommentID,
	}
}

func (snap Snapshot) toState() state {
	comments := make([]domain.Comment, len(snap.Comments))
	for i, c := range snap.Comments {
		comments[i] = domain.Comment{ID: c.ID, Content: c.Content, CreatedAt: c.CreatedAt, OwnerID: c.OwnerID}
	}

	return state{
		users:         snap.Users,
		comments:      comments,
		lastUserID:    snap.LastUserID,
		lastCommentID: snap.LastCommentID,
	}
}

type noOpPersister struct{}

func (p *noOpPersister) Load() (Snapshot, bool, error) { return Snapshot{}, false, nil }
func (p *noOpPersister) Save(snap Snapshot) error      { return nil }

func NewNoOpPersister() *noOpPersister {
	return &noOpPersister{}
}

// FilePersister writes the whole repository to one JSON file on every change.
type FilePersister struct {
	filename string
}

func NewFilePersister(filename string) *FilePersister {
	return &FilePersister{filename: filename}
}

func (fp *FilePersister) Load() (Snapshot, bool, error) {
	bytes, err := os.ReadFile(fp.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}

	// check for empty file
	if len(bytes) == 0 {
		return Snapshot{}, false, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(bytes, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("error parsing snapshot %s: %w", fp.filename, err)
	}

	return snap, true, nil
}

func (fp *FilePersister) Save(snap Snapshot) error {
	if dir := filepath.Dir(fp.filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating directory for %s: %w", fp.filename, err)
		}
	}

	file, err := os.OpenFile(fp.filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, defaultFilePermissions)
	if err != nil {
		return fmt.Errorf("error opening file %s for persistence: %w", fp.filename, err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("error writing JSON to file %s: %w", fp.filename, err)
	}

	return nil
}
