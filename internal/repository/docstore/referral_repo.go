package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/paperify-pay/internal/domain"
)

type ReferralRepository struct {
	sess *Session
}

func NewReferralRepository(sess *Session) *ReferralRepository {
	return &ReferralRepository{sess: sess}
}

// Create существующий email или занятый код - domain.ErrDuplicateKey.
func (r *ReferralRepository) Create(
	_ context.Context,
	profile domain.ReferralProfile,
) (*domain.ReferralProfile, error) {
	var created domain.ReferralProfile
	err := r.sess.write(referralsKind, func(st *state) error {
		if _, ok := st.referrals[profile.Email]; ok {
			return fmt.Errorf("[docstore/creating referral profile `%s`] %w", profile.Email, domain.ErrDuplicateKey)
		}
		for _, existing := range st.referrals {
			if existing.ReferralCode == profile.ReferralCode {
				return fmt.Errorf("[docstore/creating referral profile `%s`] %w: code", profile.Email,
					domain.ErrDuplicateKey)
			}
		}
		created = cloneProfile(profile)
		st.referrals[profile.Email] = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *ReferralRepository) Update(
	_ context.Context,
	profile domain.ReferralProfile,
) (*domain.ReferralProfile, error) {
	var updated domain.ReferralProfile
	err := r.sess.write(referralsKind, func(st *state) error {
		if _, ok := st.referrals[profile.Email]; !ok {
			return fmt.Errorf("[docstore/updating referral profile `%s`] %w", profile.Email, domain.ErrRecordNotFound)
		}
		updated = cloneProfile(profile)
		st.referrals[profile.Email] = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *ReferralRepository) FindByEmail(_ context.Context, email string) (*domain.ReferralProfile, error) {
	var found *domain.ReferralProfile
	err := r.sess.read(func(st *state) error {
		profile, ok := st.referrals[email]
		if !ok {
			return fmt.Errorf("[docstore/finding referral profile `%s`] %w", email, domain.ErrRecordNotFound)
		}
		c := cloneProfile(profile)
		found = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *ReferralRepository) FindByEmailForUpdate(
	ctx context.Context,
	email string,
) (*domain.ReferralProfile, error) {
	return r.FindByEmail(ctx, email)
}

func (r *ReferralRepository) FindByCode(_ context.Context, code string) (*domain.ReferralProfile, error) {
	var found *domain.ReferralProfile
	err := r.sess.read(func(st *state) error {
		for _, profile := range st.referrals {
			if profile.ReferralCode == code {
				c := cloneProfile(profile)
				found = &c
				return nil
			}
		}
		return fmt.Errorf("[docstore/finding referral profile by code `%s`] %w", code, domain.ErrRecordNotFound)
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *ReferralRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.FindByCode(ctx, code)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}
