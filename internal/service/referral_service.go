package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/logger"
	"github.com/fsdevblog/paperify-pay/internal/repository/repoargs"
	"github.com/fsdevblog/paperify-pay/pkg/uow"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRequiredPaidReferrals = 10
	DefaultFreePaperLimit        = 15

	referralCodeBaseLen     = 6
	referralCodeSuffixLen   = 4
	referralCodeFallbackLen = 10
	referralCodeAttempts    = 8
	referralProfileAttempts = 3
	referralCodeDefaultBase = "USER"
)

var nonAlphaNumRe = regexp.MustCompile(`[^a-z0-9]`)

type ReferralConfig struct {
	RequiredPaidReferrals int
	FreePaperLimit        int
}

// ReferralService реферальный реестр: коды, применение кода, зачет оплативших рефералов и разблокировка.
type ReferralService struct {
	uow          uow.UOW
	referralRepo ReferralRepository
	conf         ReferralConfig
	metrics      Metrics
	l            *logrus.Entry
	now          func() time.Time
}

func NewReferralService(u uow.UOW, conf ReferralConfig, l *logrus.Logger) (*ReferralService, error) {
	referralRepo, err := uow.GetRepositoryAs[ReferralRepository](u, uow.RepositoryName(repoargs.ReferralRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if conf.RequiredPaidReferrals <= 0 {
		conf.RequiredPaidReferrals = DefaultRequiredPaidReferrals
	}
	if conf.FreePaperLimit <= 0 {
		conf.FreePaperLimit = DefaultFreePaperLimit
	}
	return &ReferralService{
		uow:          u,
		referralRepo: referralRepo,
		conf:         conf,
		metrics:      noopMetrics{},
		l:            logger.Component(l, "referral"),
		now:          utcNow,
	}, nil
}

// SetClock подменяет источник времени.
func (r *ReferralService) SetClock(now func() time.Time) *ReferralService {
	r.now = now
	return r
}

// SetMetrics устанавливает получателя счетчиков.
func (r *ReferralService) SetMetrics(m Metrics) *ReferralService {
	r.metrics = m
	return r
}

// EnsureProfile возвращает профиль пользователя, создавая его при первом обращении.
// Код генерируется уникальным среди всех существующих кодов.
func (r *ReferralService) EnsureProfile(ctx context.Context, email string) (*domain.ReferralProfile, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	for range referralProfileAttempts {
		profile, err := r.referralRepo.FindByEmail(ctx, email)
		if err == nil {
			return profile, nil
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("ensuring referral profile: %w", err)
		}

		code, codeErr := r.generateCode(ctx, email)
		if codeErr != nil {
			return nil, fmt.Errorf("ensuring referral profile: %w", codeErr)
		}

		profile, err = r.referralRepo.Create(ctx, domain.ReferralProfile{
			Email:             email,
			ReferralCode:      code,
			PaidReferralUsers: []string{},
			CreatedAt:         r.now(),
		})
		if err == nil {
			return profile, nil
		}
		// профиль или код успели создать параллельно - перечитываем и пробуем снова.
		if !errors.Is(err, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("ensuring referral profile: %w", err)
		}
	}
	return nil, fmt.Errorf("ensuring referral profile for %s: %w", email, domain.ErrDuplicateKey)
}

// generateCode строит код из локальной части email и случайного суффикса. После referralCodeAttempts
// коллизий суффикс удлиняется до referralCodeFallbackLen, что гарантирует завершение на практике.
func (r *ReferralService) generateCode(ctx context.Context, email string) (string, error) {
	base := referralCodeBase(email)
	for attempt := 0; ; attempt++ {
		suffixLen := referralCodeSuffixLen
		if attempt >= referralCodeAttempts {
			suffixLen = referralCodeFallbackLen
		}
		code := base + randomBase36(suffixLen)
		exists, err := r.referralRepo.CodeExists(ctx, code)
		if err != nil {
			return "", err //nolint:wrapcheck
		}
		if !exists {
			return code, nil
		}
		if attempt >= 2*referralCodeAttempts {
			return "", fmt.Errorf("generating referral code: %w", domain.ErrDuplicateKey)
		}
	}
}

func referralCodeBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	base := nonAlphaNumRe.ReplaceAllString(strings.ToLower(local), "")
	if len(base) > referralCodeBaseLen {
		base = base[:referralCodeBaseLen]
	}
	if base == "" {
		return referralCodeDefaultBase
	}
	return strings.ToUpper(base)
}

// ApplyReferralCode привязывает пользователя к рефереру по коду. Привязка делается один раз.
// Возвращает email реферера.
func (r *ReferralService) ApplyReferralCode(ctx context.Context, email, code string) (string, error) {
	code = domain.NormalizeReferralCode(code)
	if code == "" {
		return "", domain.ErrEmptyCode
	}
	email = domain.NormalizeEmail(email)
	if _, err := r.EnsureProfile(ctx, email); err != nil {
		return "", err
	}

	var referrerEmail string
	txErr := r.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, err := txReferralRepo(tx)
		if err != nil {
			return err
		}
		profile, err := repo.FindByEmailForUpdate(c, email)
		if err != nil {
			return fmt.Errorf("applying referral code: %w", err)
		}
		if profile.ReferredBy != nil && *profile.ReferredBy != "" {
			return domain.ErrAlreadyApplied
		}
		if profile.ReferralCode == code {
			return domain.ErrSelfReferral
		}

		referrer, err := repo.FindByCode(c, code)
		if err != nil {
			if isNotFound(err) {
				return domain.ErrInvalidCode
			}
			return fmt.Errorf("applying referral code: %w", err)
		}
		if referrer.Email == email {
			return domain.ErrSelfReferral
		}

		now := r.now()
		profile.ReferredBy = &code
		profile.ReferredAt = &now
		if _, err = repo.Update(c, *profile); err != nil {
			return fmt.Errorf("applying referral code: %w", err)
		}
		referrerEmail = referrer.Email
		return nil
	})
	if txErr != nil {
		return "", txErr
	}

	r.l.WithFields(logrus.Fields{"user": email, "referrer": referrerEmail}).Info("referral code applied")
	return referrerEmail, nil
}

type CreditResult struct {
	Credited        bool
	AlreadyCredited bool
	ReferrerEmail   string
	PaidReferrals   int
	Unlocked        bool
}

// CreditReferrerForPaidUser засчитывает оплатившего пользователя его рефереру в отдельной транзакции.
func (r *ReferralService) CreditReferrerForPaidUser(ctx context.Context, paidUserEmail string) (*CreditResult, error) {
	var res *CreditResult
	txErr := r.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		var err error
		res, err = r.creditReferrerTx(c, tx, paidUserEmail)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	return res, nil
}

// creditReferrerTx засчитывает оплатившего пользователя рефереру внутри транзакции tx.
// Источник правды об идемпотентности - членство в PaidReferralUsers, проверяемое под блокировкой
// профиля реферера; проверка "первый платеж" у вызывающих служит лишь фильтром.
func (r *ReferralService) creditReferrerTx(
	ctx context.Context,
	tx uow.TX,
	paidUserEmail string,
) (*CreditResult, error) {
	paidUserEmail = domain.NormalizeEmail(paidUserEmail)
	if paidUserEmail == "" {
		return &CreditResult{}, nil
	}
	repo, err := txReferralRepo(tx)
	if err != nil {
		return nil, err
	}

	paidUser, err := repo.FindByEmail(ctx, paidUserEmail)
	if err != nil {
		if isNotFound(err) {
			return &CreditResult{}, nil
		}
		return nil, fmt.Errorf("crediting referrer: %w", err)
	}
	if paidUser.ReferredBy == nil || *paidUser.ReferredBy == "" {
		return &CreditResult{}, nil
	}

	referrer, err := repo.FindByCode(ctx, *paidUser.ReferredBy)
	if err != nil {
		if isNotFound(err) {
			return &CreditResult{}, nil
		}
		return nil, fmt.Errorf("crediting referrer: %w", err)
	}
	referrer, err = repo.FindByEmailForUpdate(ctx, referrer.Email)
	if err != nil {
		return nil, fmt.Errorf("crediting referrer: %w", err)
	}

	if referrer.HasPaidReferral(paidUserEmail) {
		return &CreditResult{
			AlreadyCredited: true,
			ReferrerEmail:   referrer.Email,
			PaidReferrals:   len(referrer.PaidReferralUsers),
			Unlocked:        referrer.IsUnlocked(r.conf.RequiredPaidReferrals),
		}, nil
	}

	referrer.PaidReferralUsers = append(referrer.PaidReferralUsers, paidUserEmail)
	paidReferrals := len(referrer.PaidReferralUsers)
	if paidReferrals >= r.conf.RequiredPaidReferrals && referrer.UnlockedAt == nil {
		now := r.now()
		referrer.UnlockedAt = &now
	}
	if _, err = repo.Update(ctx, *referrer); err != nil {
		return nil, fmt.Errorf("crediting referrer: %w", err)
	}

	r.metrics.ReferralCredited()
	r.l.WithFields(logrus.Fields{
		"referrer":      referrer.Email,
		"paidUser":      paidUserEmail,
		"paidReferrals": paidReferrals,
		"required":      r.conf.RequiredPaidReferrals,
	}).Info("referral reward credited")

	return &CreditResult{
		Credited:      true,
		ReferrerEmail: referrer.Email,
		PaidReferrals: paidReferrals,
		Unlocked:      referrer.IsUnlocked(r.conf.RequiredPaidReferrals),
	}, nil
}

type ReferralStatus struct {
	ReferralCode          string
	ReferredBy            *string
	PaidReferrals         int
	RequiredPaidReferrals int
	Unlocked              bool
	FreePaperCount        int
	FreePaperLimit        int
}

// GetStatus реферальный статус пользователя. Если порог набран, а UnlockedAt еще не проставлен,
// проставляет его (ленивая разблокировка).
func (r *ReferralService) GetStatus(ctx context.Context, email string) (*ReferralStatus, error) {
	profile, err := r.EnsureProfile(ctx, email)
	if err != nil {
		return nil, err
	}

	if profile.IsUnlocked(r.conf.RequiredPaidReferrals) && profile.UnlockedAt == nil {
		txErr := r.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
			repo, repoErr := txReferralRepo(tx)
			if repoErr != nil {
				return repoErr
			}
			fresh, findErr := repo.FindByEmailForUpdate(c, profile.Email)
			if findErr != nil {
				return fmt.Errorf("promoting unlock: %w", findErr)
			}
			if fresh.UnlockedAt == nil {
				now := r.now()
				fresh.UnlockedAt = &now
				if _, updErr := repo.Update(c, *fresh); updErr != nil {
					return fmt.Errorf("promoting unlock: %w", updErr)
				}
			}
			profile = fresh
			return nil
		})
		if txErr != nil {
			return nil, txErr
		}
	}

	return &ReferralStatus{
		ReferralCode:          profile.ReferralCode,
		ReferredBy:            profile.ReferredBy,
		PaidReferrals:         len(profile.PaidReferralUsers),
		RequiredPaidReferrals: r.conf.RequiredPaidReferrals,
		Unlocked:              profile.IsUnlocked(r.conf.RequiredPaidReferrals),
		FreePaperCount:        profile.FreePaperCount,
		FreePaperLimit:        r.conf.FreePaperLimit,
	}, nil
}

// UseFreePaper списывает одну бесплатную работу из награды разблокированного реферера.
// Возвращает новое значение счетчика.
func (r *ReferralService) UseFreePaper(ctx context.Context, email string) (int, error) {
	profile, err := r.EnsureProfile(ctx, email)
	if err != nil {
		return 0, err
	}

	var count int
	txErr := r.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := txReferralRepo(tx)
		if repoErr != nil {
			return repoErr
		}
		fresh, findErr := repo.FindByEmailForUpdate(c, profile.Email)
		if findErr != nil {
			return fmt.Errorf("using free paper: %w", findErr)
		}
		if !fresh.IsUnlocked(r.conf.RequiredPaidReferrals) {
			return domain.ErrReferralLocked
		}
		if fresh.FreePaperCount >= r.conf.FreePaperLimit {
			return domain.ErrFreePaperLimit
		}
		fresh.FreePaperCount++
		if fresh.UnlockedAt == nil {
			now := r.now()
			fresh.UnlockedAt = &now
		}
		if _, updErr := repo.Update(c, *fresh); updErr != nil {
			return fmt.Errorf("using free paper: %w", updErr)
		}
		count = fresh.FreePaperCount
		return nil
	})
	if txErr != nil {
		return 0, txErr
	}
	return count, nil
}
