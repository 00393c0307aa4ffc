package auth

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserStore is the storage contract the auth core relies on. Implementations
// must enforce email uniqueness atomically at write time: Create and Update
// return ErrEmailTaken when the normalized address is already held by another
// user, even under concurrent writers.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, f ListFilter) ([]User, int, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// ListFilter narrows List results. Query matches name or email as a
// case-insensitive substring. Limit and Offset are applied after filtering;
// the returned total counts all matches regardless of the window.
type ListFilter struct {
	Query  string
	Role   Role
	Limit  int
	Offset int
}

// Store is the Postgres-backed UserStore. Email uniqueness rides on the
// unique index over lower(email); the application never check-then-inserts.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = "id, name, email, password_hash, role, created_at, updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	u := &User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *Store) Create(ctx context.Context, u *User) error {
	const q = `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, q,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	u, err := scanUser(s.db.QueryRowContext(ctx, q, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]User, int, error) {
	clauses := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if f.Query != "" {
		clauses = append(clauses, "(name ILIKE $"+itoa(idx)+" OR email ILIKE $"+itoa(idx)+")")
		args = append(args, "%"+f.Query+"%")
		idx++
	}
	if f.Role != "" {
		clauses = append(clauses, "role = $"+itoa(idx))
		args = append(args, string(f.Role))
		idx++
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM users WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	query := "SELECT " + userColumns + " FROM users WHERE " + where +
		" ORDER BY created_at DESC LIMIT " + itoa(limit) + " OFFSET " + itoa(f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) Update(ctx context.Context, u *User) error {
	const q = `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, role = $4, updated_at = $5
		WHERE id = $6
	`
	res, err := s.db.ExecContext(ctx, q,
		u.Name, u.Email, u.PasswordHash, u.Role, u.UpdatedAt, u.ID)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
