package domain

import (
	"errors"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnknown        = errors.New("unknown error")

	ErrValidation           = errors.New("validation error")
	ErrInvalidPlan          = errors.New("invalid plan selected")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidState         = errors.New("invalid order state")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrExpired              = errors.New("order expired, please create a new order")
	ErrBadSignature         = errors.New("webhook signature verification failed")
	ErrUnconfigured         = errors.New("payment gateway is not configured")

	ErrEmptyCode      = errors.New("referral code is required")
	ErrAlreadyApplied = errors.New("referral code already applied")
	ErrSelfReferral   = errors.New("you cannot use your own referral code")
	ErrInvalidCode    = errors.New("invalid referral code")

	ErrReferralLocked = errors.New("referral reward is not unlocked yet")
	ErrFreePaperLimit = errors.New("free paper limit reached")
)
