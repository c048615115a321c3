package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-regula/internal/common/models"
	"go-regula/internal/database"
)

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	ListByRole(ctx context.Context, role models.Role) ([]User, error)
	Count(ctx context.Context) (int, error)
}

type UserRepositoryImpl struct {
	DB *database.Database
}

func NewUserRepository(db *database.Database) UserRepository {
	return &UserRepositoryImpl{DB: db}
}

const userColumns = "id, email, role, created_at"

func (r *UserRepositoryImpl) Create(ctx context.Context, u *User) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO users (id, email, role, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.Role, database.FormatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepositoryImpl) List(ctx context.Context) ([]User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, email`)
}

func (r *UserRepositoryImpl) ListByRole(ctx context.Context, role models.Role) ([]User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY email`, role)
}

func (r *UserRepositoryImpl) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepositoryImpl) getOne(ctx context.Context, query string, args ...any) (*User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row database.RowScanner) (*User, error) {
	var (
		u       User
		role    string
		created string
	)
	if err := row.Scan(&u.ID, &u.Email, &role, &created); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	var err error
	if u.CreatedAt, err = database.ParseTime(created); err != nil {
		return nil, err
	}
	return &u, nil
}
