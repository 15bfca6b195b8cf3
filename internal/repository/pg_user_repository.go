package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"account-service/internal/interfaces"
	"account-service/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, password_hash, phone_number, first_name, last_name, language, gender,
	birthday, address, is_verified, point, favors, interested_in, profile_photo_uri, last_login, role, user_status,
	created_at, updated_at`

// Compile-time check to ensure pgUserRepository implements UserRepository
var _ interfaces.UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(db DBTX, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

// Create inserts user. A zero ID is replaced by a fresh UUID.
func (r *pgUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	address, lastLogin, err := encodeJSONColumns(user)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	r.logger.Debug("Executing query", zap.String("query", "INSERT INTO users"), zap.String("username", user.Username), zap.String("email", user.Email))

	_, err = r.db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.PhoneNumber, user.FirstName, user.LastName,
		user.Language, user.Gender, user.Birthday, address, user.IsVerified, user.Point, stringSlice(user.Favors),
		stringSlice(user.InterestedIn), user.ProfilePhotoURI, lastLogin, user.Role, user.UserStatus,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if conflict := r.uniqueViolation(err, user); conflict != nil {
			return conflict
		}
		r.logger.Error("Failed to create user in postgres", zap.Error(err), zap.String("email", user.Email))
		return fmt.Errorf("failed to create user in postgres: %w", err)
	}
	r.logger.Info("User created successfully", zap.String("userID", user.ID.String()), zap.String("username", user.Username))
	return nil
}

// Update writes every mutable column of user.
func (r *pgUserRepository) Update(ctx context.Context, user *models.User) error {
	address, lastLogin, err := encodeJSONColumns(user)
	if err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()

	query := `UPDATE users SET username = $2, email = $3, password_hash = $4, phone_number = $5, first_name = $6,
		last_name = $7, language = $8, gender = $9, birthday = $10, address = $11, is_verified = $12, point = $13,
		favors = $14, interested_in = $15, profile_photo_uri = $16, last_login = $17, role = $18, user_status = $19,
		updated_at = $20
		WHERE id = $1`
	r.logger.Debug("Executing query", zap.String("query", "UPDATE users"), zap.String("userID", user.ID.String()))

	cmdTag, err := r.db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.PhoneNumber, user.FirstName, user.LastName,
		user.Language, user.Gender, user.Birthday, address, user.IsVerified, user.Point, stringSlice(user.Favors),
		stringSlice(user.InterestedIn), user.ProfilePhotoURI, lastLogin, user.Role, user.UserStatus, user.UpdatedAt,
	)
	if err != nil {
		if conflict := r.uniqueViolation(err, user); conflict != nil {
			return conflict
		}
		r.logger.Error("Failed to update user in postgres", zap.Error(err), zap.String("userID", user.ID.String()))
		return fmt.Errorf("failed to update user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update non-existent user", zap.String("userID", user.ID.String()))
		return models.ErrUserNotFound
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *pgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *pgUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email", normalizeEmail(email))
}

// GetByUsername retrieves a user by username.
func (r *pgUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "username", username)
}

func (r *pgUserRepository) getOne(ctx context.Context, column string, value any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	r.logger.Debug("Executing query", zap.String("query", "SELECT user"), zap.String("by", column), zap.Any("value", value))

	user, err := scanUser(r.db.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found", zap.String("by", column), zap.Any("value", value))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user from postgres", zap.Error(err), zap.String("by", column))
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return user, nil
}

// ExistsByEmail reports whether email is registered.
func (r *pgUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", normalizeEmail(email))
}

// ExistsByUsername reports whether username is taken.
func (r *pgUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username", username)
}

func (r *pgUserRepository) exists(ctx context.Context, column, value string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE ` + column + ` = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, value).Scan(&exists); err != nil {
		r.logger.Error("Failed to check user existence", zap.Error(err), zap.String("by", column))
		return false, fmt.Errorf("failed to check user existence by %s: %w", column, err)
	}
	return exists, nil
}

// List returns a page of users matching filter, newest first.
func (r *pgUserRepository) List(ctx context.Context, filter models.UserFilter, skip, limit int) ([]models.UserListItem, error) {
	where, args := buildUserFilter(filter)
	args = append(args, limit, skip)
	query := fmt.Sprintf(`SELECT id, email, username, first_name, last_name, role, user_status FROM users%s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	r.logger.Debug("Executing query", zap.String("query", query), zap.Int("skip", skip), zap.Int("limit", limit))

	items := make([]models.UserListItem, 0)
	if err := pgxscan.Select(ctx, r.db, &items, query, args...); err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return items, nil
}

// Count returns the number of users matching filter.
func (r *pgUserRepository) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	where, args := buildUserFilter(filter)
	query := `SELECT COUNT(*) FROM users` + where
	r.logger.Debug("Executing query", zap.String("query", query))

	var count int64
	if err := pgxscan.Get(ctx, r.db, &count, query, args...); err != nil {
		r.logger.Error("Failed to count users", zap.Error(err))
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *pgUserRepository) uniqueViolation(err error, user *models.User) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	logFields := []zap.Field{zap.String("username", user.Username), zap.String("email", user.Email), zap.String("constraint", pgErr.ConstraintName)}
	r.logger.Warn("Unique constraint violation on users", logFields...)
	switch pgErr.ConstraintName {
	case "users_username_key":
		return models.ErrUsernameTaken
	case "users_email_key":
		return models.ErrEmailAlreadyExists
	default:
		return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.ConstraintName)
	}
}

func buildUserFilter(filter models.UserFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("user_status = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		conds = append(conds, fmt.Sprintf("(username ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user      models.User
		address   []byte
		lastLogin []byte
	)
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.PhoneNumber, &user.FirstName,
		&user.LastName, &user.Language, &user.Gender, &user.Birthday, &address, &user.IsVerified, &user.Point,
		&user.Favors, &user.InterestedIn, &user.ProfilePhotoURI, &lastLogin, &user.Role, &user.UserStatus,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(address) > 0 && string(address) != "null" {
		user.Address = &models.Address{}
		if err := json.Unmarshal(address, user.Address); err != nil {
			return nil, fmt.Errorf("failed to decode address: %w", err)
		}
	}
	if len(lastLogin) > 0 {
		if err := json.Unmarshal(lastLogin, &user.LastLogin); err != nil {
			return nil, fmt.Errorf("failed to decode login history: %w", err)
		}
	}
	return &user, nil
}

func encodeJSONColumns(user *models.User) ([]byte, []byte, error) {
	var address []byte
	if user.Address != nil {
		b, err := json.Marshal(user.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode address: %w", err)
		}
		address = b
	}
	history := user.LastLogin
	if history == nil {
		history = []models.LoginEntry{}
	}
	lastLogin, err := json.Marshal(history)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode login history: %w", err)
	}
	return address, lastLogin, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func stringSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
