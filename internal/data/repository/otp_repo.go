package repository

import (
	"context"
	"fmt"
	"time"

	"local-services/internal/data/entity"
	"local-services/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OTPRepository owns the pending-code columns on users. Verification and
// reset codes live in separate columns so the two flows never overwrite
// each other.
type OTPRepository interface {
	SetCode(ctx context.Context, userID uuid.UUID, purpose entity.CodePurpose, code entity.OneTimeCode) error
	ConsumeVerification(ctx context.Context, userID uuid.UUID, code string, now time.Time) error
	ConsumeReset(ctx context.Context, userID uuid.UUID, code string, now time.Time, passwordHash string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type otpRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOTPRepository(db database.PgxIface, log *zap.Logger) OTPRepository {
	return &otpRepository{
		db:  db,
		log: log.With(zap.String("repository", "otp")),
	}
}

func (r *otpRepository) SetCode(ctx context.Context, userID uuid.UUID, purpose entity.CodePurpose, code entity.OneTimeCode) error {
	var query string
	switch purpose {
	case entity.PurposeEmailVerification:
		query = `UPDATE users SET otp_code = $2, otp_expires_at = $3, updated_at = NOW() WHERE id = $1`
	case entity.PurposePasswordReset:
		query = `UPDATE users SET reset_code = $2, reset_expires_at = $3, updated_at = NOW() WHERE id = $1`
	default:
		return fmt.Errorf("unknown code purpose %q", purpose)
	}

	result, err := r.db.Exec(ctx, query, userID, code.Code, code.ExpiresAt)
	if err != nil {
		r.log.Error("Failed to store code",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("purpose", string(purpose)),
		)
		return fmt.Errorf("store %s code for %s: %w", purpose, userID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("store %s code for %s: %w", purpose, userID.String(), ErrNotFound)
	}

	return nil
}

// ConsumeVerification marks the user verified and clears the code in one
// statement, only if the code still matches and has not expired.
func (r *otpRepository) ConsumeVerification(ctx context.Context, userID uuid.UUID, code string, now time.Time) error {
	query := `
		UPDATE users
		SET verified = TRUE, otp_code = NULL, otp_expires_at = NULL, updated_at = $3
		WHERE id = $1 AND otp_code = $2 AND otp_expires_at > $3
	`

	result, err := r.db.Exec(ctx, query, userID, code, now)
	if err != nil {
		r.log.Error("Failed to consume verification code",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return fmt.Errorf("consume verification code for %s: %w", userID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("consume verification code for %s: %w", userID.String(), ErrNotFound)
	}

	return nil
}

func (r *otpRepository) ConsumeReset(ctx context.Context, userID uuid.UUID, code string, now time.Time, passwordHash string) error {
	query := `
		UPDATE users
		SET password = $4, reset_code = NULL, reset_expires_at = NULL, updated_at = $3
		WHERE id = $1 AND reset_code = $2 AND reset_expires_at > $3
	`

	result, err := r.db.Exec(ctx, query, userID, code, now, passwordHash)
	if err != nil {
		r.log.Error("Failed to consume reset code",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return fmt.Errorf("consume reset code for %s: %w", userID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("consume reset code for %s: %w", userID.String(), ErrNotFound)
	}

	return nil
}

// PurgeExpired clears codes whose expiry has passed and returns the number of users touched
func (r *otpRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET otp_code         = CASE WHEN otp_expires_at <= $1 THEN NULL ELSE otp_code END,
		    otp_expires_at   = CASE WHEN otp_expires_at <= $1 THEN NULL ELSE otp_expires_at END,
		    reset_code       = CASE WHEN reset_expires_at <= $1 THEN NULL ELSE reset_code END,
		    reset_expires_at = CASE WHEN reset_expires_at <= $1 THEN NULL ELSE reset_expires_at END
		WHERE otp_expires_at <= $1 OR reset_expires_at <= $1
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to purge expired codes", zap.Error(err))
		return 0, fmt.Errorf("purge expired codes: %w", err)
	}

	return result.RowsAffected(), nil
}
