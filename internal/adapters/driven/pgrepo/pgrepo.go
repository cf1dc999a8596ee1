package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crudserver/internal/core/domain"
	"crudserver/internal/core/service/resource"
	"crudserver/internal/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Repository stores users and comments in PostgreSQL. Every value reaches the server as a bound argument.
type Repository struct {
	pool *pgxpool.Pool
}

var _ resource.Repository = (*Repository)(nil)

type Options struct {
	MaxConns int32
}

// New opens a pool for dsn. A failed startup ping is logged, not returned, so the server can come up before the
// database does.
func New(ctx context.Context, dsn string, opts Options) (*Repository, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgrepo: invalid dsn: %w", err)
	}

	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgrepo: could not create pool: %w", err)
	}

	log := logger.Named("pgrepo")
	if err := pool.Ping(ctx); err != nil {
		log.Warn("startup ping failed", logger.Err(err))
	} else {
		log.Info("pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}

	return &Repository{pool: pool}, nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the pool for metrics.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, age FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("pgrepo: list users: %w", err)
	}

	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("pgrepo: list users: %w", err)
	}

	return users, nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	id, ok := parseID(userID)
	if !ok {
		return domain.User{}, resource.ErrRecordNotFound
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name, email, age FROM users WHERE id = $1`, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("pgrepo: get user: %w", err)
	}

	user, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, resource.ErrRecordNotFound
		}
		return domain.User{}, fmt.Errorf("pgrepo: get user: %w", err)
	}

	return user, nil
}

func (r *Repository) SearchUsersByName(ctx context.Context, term string) ([]domain.User, error) {
	const q = `SELECT id, name, email, age FROM users WHERE name ILIKE '%' || $1 || '%' ESCAPE '\' ORDER BY id`

	rows, err := r.pool.Query(ctx, q, escapeLike(term))
	if err != nil {
		return nil, fmt.Errorf("pgrepo: search users: %w", err)
	}

	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("pgrepo: search users: %w", err)
	}

	return users, nil
}

func (r *Repository) InsertUser(ctx context.Context, user domain.NewUser) (string, error) {
	const q = `INSERT INTO users (name, email, age) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	if err := r.pool.QueryRow(ctx, q, user.Name, user.Email, user.Age).Scan(&id); err != nil {
		return "", translateWriteError("insert user", err)
	}

	return formatID(id), nil
}

// UpdateUserByID merges the patch in a single statement, so concurrent patches on different columns never undo
// each other. A nil name or email keeps the column; age needs its own flag because NULL is a valid age.
func (r *Repository) UpdateUserByID(ctx context.Context, userID string, patch domain.UserPatch) (domain.User, int64, error) {
	id, ok := parseID(userID)
	if !ok {
		return domain.User{}, 0, nil
	}

	const q = `UPDATE users
		SET name = COALESCE($1::text, name),
			email = COALESCE($2::text, email),
			age = CASE WHEN $3::bool THEN $4::integer ELSE age END
		WHERE id = $5
		RETURNING id, name, email, age`

	rows, err := r.pool.Query(ctx, q, patch.Name, patch.Email, patch.Age != nil, patch.Age, id)
	if err != nil {
		return domain.User{}, 0, translateWriteError("update user", err)
	}

	user, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, 0, nil
		}
		return domain.User{}, 0, translateWriteError("update user", err)
	}

	return user, 1, nil
}

// DeleteUserByID relies on ON DELETE CASCADE to drop the user's comments.
func (r *Repository) DeleteUserByID(ctx context.Context, userID string) (int64, error) {
	id, ok := parseID(userID)
	if !ok {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("pgrepo: delete user: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *Repository) ListCommentsWithOwnerName(ctx context.Context, ownerID string) ([]domain.Comment, error) {
	id, ok := parseID(ownerID)
	if !ok {
		return []domain.Comment{}, nil
	}

	const q = `
		SELECT c.id, c.content, c.created_at, c.user_id, u.name
		FROM comments c
		JOIN users u ON c.user_id = u.id
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC, c.id DESC`

	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("pgrepo: list comments: %w", err)
	}

	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Comment, error) {
		var (
			c         domain.Comment
			commentID int64
			userID    int64
			createdAt time.Time
		)
		if err := row.Scan(&commentID, &c.Content, &createdAt, &userID, &c.OwnerName); err != nil {
			return domain.Comment{}, err
		}
		c.ID = formatID(commentID)
		c.OwnerID = formatID(userID)
		c.CreatedAt = createdAt.UTC()
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgrepo: list comments: %w", err)
	}

	return comments, nil
}

func (r *Repository) InsertComment(ctx context.Context, ownerID string, comment domain.NewComment) (string, error) {
	id, ok := parseID(ownerID)
	if !ok {
		return "", resource.ErrRecordNotFound
	}

	const q = `INSERT INTO comments (content, created_at, user_id) VALUES ($1, $2, $3) RETURNING id`

	var newID int64
	if err := r.pool.QueryRow(ctx, q, comment.Content, comment.CreatedAt, id).Scan(&newID); err != nil {
		return "", translateWriteError("insert comment", err)
	}

	return formatID(newID), nil
}

func (r *Repository) UpdateCommentForOwner(ctx context.Context, ownerID, commentID, content string) (int64, error) {
	owner, ok := parseID(ownerID)
	if !ok {
		return 0, nil
	}
	id, ok := parseID(commentID)
	if !ok {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `UPDATE comments SET content = $1 WHERE id = $2 AND user_id = $3`, content, id, owner)
	if err != nil {
		return 0, fmt.Errorf("pgrepo: update comment: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *Repository) DeleteCommentForOwner(ctx context.Context, ownerID, commentID string) (int64, error) {
	owner, ok := parseID(ownerID)
	if !ok {
		return 0, nil
	}
	id, ok := parseID(commentID)
	if !ok {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return 0, fmt.Errorf("pgrepo: delete comment: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func scanUser(row pgx.CollectableRow) (domain.User, error) {
	var (
		u  domain.User
		id int64
	)
	if err := row.Scan(&id, &u.Name, &u.Email, &u.Age); err != nil {
		return domain.User{}, err
	}
	u.ID = formatID(id)
	return u, nil
}

// translateWriteError maps constraint failures onto the service's sentinel errors.
func translateWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("pgrepo: %s: %w", op, resource.ErrDuplicateEmail)
		case foreignKeyViolation:
			// the owner vanished after the service checked it
			return fmt.Errorf("pgrepo: %s: %w", op, resource.ErrRecordNotFound)
		}
	}
	return fmt.Errorf("pgrepo: %s: %w", op, err)
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE metacharacters in a user-supplied term match literally.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
