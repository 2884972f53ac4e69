package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/hyeonwoo/studycafe-server/internal/model"
    "github.com/hyeonwoo/studycafe-server/internal/utils"
)

// UserRepo provides data access to the users table.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrUsernameExists = errors.New("username already exists")

const userColumns = `id, chat_id, username, department, grade, sms_verified, password_hash, created_at`

func scanUser(scan func(dest ...any) error) (*model.User, error) {
    var u model.User
    err := scan(
        &u.ID, &u.ChatID, &u.Username, &u.Department, &u.Grade,
        &u.SMSVerified, &u.PasswordHash, &u.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &u, nil
}

// Create inserts a user and returns its id.  The password is hashed
// here so callers never handle the plaintext past this point.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) (uint64, error) {
    u.Username = strings.TrimSpace(u.Username)
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    res, err := r.DB.ExecContext(ctx,
        `INSERT INTO users (chat_id, username, department, grade, sms_verified, password_hash)
         VALUES (?, ?, ?, ?, ?, ?)`,
        u.ChatID, u.Username, u.Department, u.Grade, u.SMSVerified, hash)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return 0, ErrUsernameExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    u.ID = uint64(id)
    return u.ID, nil
}

// ByID fetches a user by id, or (nil, nil) when absent.
func (r *UserRepo) ByID(ctx context.Context, id uint64) (*model.User, error) {
    u, err := scanUser(r.DB.QueryRowContext(ctx,
        `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return u, err
}

// ByChatID fetches a user by messenger chat id, or (nil, nil).
func (r *UserRepo) ByChatID(ctx context.Context, chatID int64) (*model.User, error) {
    u, err := scanUser(r.DB.QueryRowContext(ctx,
        `SELECT `+userColumns+` FROM users WHERE chat_id = ? LIMIT 1`, chatID).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return u, err
}

// ByUsername fetches a user by exact username, or (nil, nil).  Used by
// the staff login flow.
func (r *UserRepo) ByUsername(ctx context.Context, username string) (*model.User, error) {
    u, err := scanUser(r.DB.QueryRowContext(ctx,
        `SELECT `+userColumns+` FROM users WHERE username = ? LIMIT 1`,
        strings.TrimSpace(username)).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return u, err
}
