package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/service-booking/internal/model"
)

// UserRepo encapsulates queries against the users table.  Emails are
// normalised to lower case before every read and write.
type UserRepo struct {
	db Querier
}

func NewUserRepo(db Querier) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id, name, email, password_hash, role, created_at, updated_at"

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", normalizeEmail(email))
}

// Create inserts a user whose password has already been hashed.  A
// taken email surfaces as ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)",
		u.Name, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return classify(r.db.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM users WHERE id = ?", u.ID).Scan(&u.CreatedAt, &u.UpdatedAt))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
