package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saasforge/saasforge/internal/database"
	"github.com/saasforge/saasforge/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, avatar_url, bio, country,
		role, status, plan, is_resetting_password, reset_token, reset_requested_at,
		two_factor_secret, two_factor_enabled, two_factor_backup_codes,
		stripe_customer_id, last_login_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.AvatarURL, &user.Bio, &user.Country,
		&user.Role, &user.Status, &user.Plan,
		&user.IsResettingPassword, &user.ResetToken, &user.ResetRequestedAt,
		&user.TwoFactorSecret, &user.TwoFactorEnabled, &user.TwoFactorBackupCodes,
		&user.StripeCustomerID, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, token))
}

func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, customerID))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// SearchByName finds users whose first name matches the given fragment,
// case-insensitively, with pagination.
func (r *UserRepository) SearchByName(ctx context.Context, name string, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE first_name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, name, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Status == "" {
		user.Status = models.StatusActive
	}
	if user.Plan == "" {
		user.Plan = models.PlanFree
	}
	if user.TwoFactorBackupCodes == nil {
		user.TwoFactorBackupCodes = []string{}
	}

	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, avatar_url, bio, country,
			role, status, plan, two_factor_backup_codes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.AvatarURL, user.Bio, user.Country,
		user.Role, user.Status, user.Plan, user.TwoFactorBackupCodes,
		user.CreatedAt, user.UpdatedAt,
	))
}

// UpdateProfile applies profile fields (names, bio, country) to a user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, user *models.User) (*models.User, error) {
	query := `
		UPDATE users SET first_name = $1, last_name = $2, bio = $3, country = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.FirstName, user.LastName, user.Bio, user.Country, id,
	))
}

// UpdatePassword replaces the password hash and ends any in-progress reset
// request. The token row is kept so that reusing a consumed token reads as
// an invalid state rather than an unknown token; the sweeper releases it.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users SET password_hash = $1, is_resetting_password = FALSE, updated_at = NOW()
		WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetResetToken marks a reset request as in progress.
func (r *UserRepository) SetResetToken(ctx context.Context, id, token string) error {
	query := `
		UPDATE users SET is_resetting_password = TRUE, reset_token = $1,
			reset_requested_at = NOW(), updated_at = NOW()
		WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, token, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearExpiredResetRequests clears reset state for requests older than the
// cutoff, releasing both expired and consumed tokens from the unique column.
// Returns the number of cleared rows.
func (r *UserRepository) ClearExpiredResetRequests(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE users SET is_resetting_password = FALSE, reset_token = NULL, updated_at = NOW()
		WHERE reset_token IS NOT NULL AND reset_requested_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// SetTwoFactorSecret persists a TOTP secret and enables 2FA.
func (r *UserRepository) SetTwoFactorSecret(ctx context.Context, id, secret string) error {
	query := `
		UPDATE users SET two_factor_secret = $1, two_factor_enabled = TRUE, updated_at = NOW()
		WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, secret, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DisableTwoFactor clears the secret, the enabled flag and any backup codes.
func (r *UserRepository) DisableTwoFactor(ctx context.Context, id string) error {
	query := `
		UPDATE users SET two_factor_secret = NULL, two_factor_enabled = FALSE,
			two_factor_backup_codes = '{}', updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateLastLogin records a successful login. Best-effort telemetry, callers
// may ignore the error.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)
	return database.MapPostgresError(err)
}

// SetStripeCustomerID links a user to a billing customer record.
func (r *UserRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	query := `UPDATE users SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, customerID, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdatePlan moves a user to a new plan, looked up by the billing customer
// reference rather than the internal id.
func (r *UserRepository) UpdatePlan(ctx context.Context, stripeCustomerID, plan string) error {
	query := `UPDATE users SET plan = $1, updated_at = NOW() WHERE stripe_customer_id = $2`

	result, err := r.pool.Exec(ctx, query, plan, stripeCustomerID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
