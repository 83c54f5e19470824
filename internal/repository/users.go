package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
)

type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	// UpdateHash swaps a stored credential, e.g. after a legacy login
	// migrates to the current format.
	UpdateHash(ctx context.Context, username, passwordHash string) error
}

type userRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewUserRepository(db *DB, logger *slog.Logger) UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) Create(ctx context.Context, username, passwordHash string) (*entity.User, error) {
	now := time.Now()
	var id int32
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?) RETURNING id`,
		username, passwordHash, fmtTime(now)).Scan(&id)
	if err != nil {
		r.logger.Error("failed to create user", "username", username, "error", err)
		return nil, common.WrapError(err, "create user")
	}
	return &entity.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var (
		u       entity.User
		created string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM users
		WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if err != nil {
		if isNoRows(err) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to load user", "username", username, "error", err)
		return nil, common.WrapError(err, "load user")
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func (r *userRepository) UpdateHash(ctx context.Context, username, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE username = ?`, passwordHash, username)
	if err != nil {
		r.logger.Error("failed to update credential", "username", username, "error", err)
		return common.WrapError(err, "update credential")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}
