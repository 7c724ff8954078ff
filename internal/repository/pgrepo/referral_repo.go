package pgrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const (
	referralInsertQuery = `INSERT INTO referral_profiles (email, referral_code, referred_by, created_at, doc)
VALUES ($1, $2, $3, $4, $5)
RETURNING email, doc`

	referralUpdateQuery = `UPDATE referral_profiles
SET referral_code = $2, referred_by = $3, doc = $4, updated_at = NOW()
WHERE email = $1
RETURNING email, doc`

	referralFindByEmailQuery          = `SELECT email, doc FROM referral_profiles WHERE email = $1`
	referralFindByEmailForUpdateQuery = referralFindByEmailQuery + ` FOR UPDATE`
	referralFindByCodeQuery           = `SELECT email, doc FROM referral_profiles WHERE referral_code = $1`
	referralCodeExistsQuery           = `SELECT EXISTS(SELECT 1 FROM referral_profiles WHERE referral_code = $1)`
)

type ReferralRepository struct {
	conn uow.DBTX
}

func NewReferralRepository(conn uow.DBTX) *ReferralRepository {
	return &ReferralRepository{conn: conn}
}

func (r *ReferralRepository) Create(
	ctx context.Context,
	profile domain.ReferralProfile,
) (*domain.ReferralProfile, error) {
	doc, err := json.Marshal(profile)
	if err != nil {
		return nil, convertErr(err, "encoding referral profile `%s`", profile.Email)
	}
	created, err := scanProfile(r.conn.QueryRow(ctx, referralInsertQuery,
		profile.Email,
		profile.ReferralCode,
		profile.ReferredBy,
		profile.CreatedAt,
		doc,
	))
	if err != nil {
		return nil, convertErr(err, "creating referral profile `%s`", profile.Email)
	}
	return created, nil
}

func (r *ReferralRepository) Update(
	ctx context.Context,
	profile domain.ReferralProfile,
) (*domain.ReferralProfile, error) {
	doc, err := json.Marshal(profile)
	if err != nil {
		return nil, convertErr(err, "encoding referral profile `%s`", profile.Email)
	}
	updated, err := scanProfile(r.conn.QueryRow(ctx, referralUpdateQuery,
		profile.Email,
		profile.ReferralCode,
		profile.ReferredBy,
		doc,
	))
	if err != nil {
		return nil, convertErr(err, "updating referral profile `%s`", profile.Email)
	}
	return updated, nil
}

func (r *ReferralRepository) FindByEmail(ctx context.Context, email string) (*domain.ReferralProfile, error) {
	profile, err := scanProfile(r.conn.QueryRow(ctx, referralFindByEmailQuery, email))
	if err != nil {
		return nil, convertErr(err, "finding referral profile `%s`", email)
	}
	return profile, nil
}

// FindByEmailForUpdate блокирует строку профиля до конца транзакции.
func (r *ReferralRepository) FindByEmailForUpdate(
	ctx context.Context,
	email string,
) (*domain.ReferralProfile, error) {
	profile, err := scanProfile(r.conn.QueryRow(ctx, referralFindByEmailForUpdateQuery, email))
	if err != nil {
		return nil, convertErr(err, "finding referral profile `%s` for update", email)
	}
	return profile, nil
}

func (r *ReferralRepository) FindByCode(ctx context.Context, code string) (*domain.ReferralProfile, error) {
	profile, err := scanProfile(r.conn.QueryRow(ctx, referralFindByCodeQuery, code))
	if err != nil {
		return nil, convertErr(err, "finding referral profile by code `%s`", code)
	}
	return profile, nil
}

func (r *ReferralRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.conn.QueryRow(ctx, referralCodeExistsQuery, code).Scan(&exists); err != nil {
		return false, convertErr(err, "checking referral code `%s`", code)
	}
	return exists, nil
}

// scanProfile email хранится отдельной колонкой и в документ не попадает.
func scanProfile(row pgx.Row) (*domain.ReferralProfile, error) {
	var email string
	var raw []byte
	if err := row.Scan(&email, &raw); err != nil {
		return nil, err //nolint:wrapcheck
	}
	var profile domain.ReferralProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decoding referral profile: %w", err)
	}
	profile.Email = email
	if profile.PaidReferralUsers == nil {
		profile.PaidReferralUsers = []string{}
	}
	return &profile, nil
}
