package api

import (
	"net/http"
	"testing"

	"github.com/fsdevblog/paperify-pay/internal/domain"
	"github.com/fsdevblog/paperify-pay/internal/service"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type ReferralHandlerTestSuite struct {
	handlerSuite
}

func TestReferralHandlerSuite(t *testing.T) {
	suite.Run(t, new(ReferralHandlerTestSuite))
}

func (s *ReferralHandlerTestSuite) TestStatus() {
	referredBy := "bob@example.com"
	s.referrals.EXPECT().GetStatus(gomock.Any(), s.userEmail).Return(&service.ReferralStatus{
		ReferralCode:          "BUYERX1A2B",
		ReferredBy:            &referredBy,
		PaidReferrals:         3,
		RequiredPaidReferrals: 10,
		FreePaperLimit:        15,
	}, nil).Times(1)

	status, body := s.doJSON(http.MethodGet, ReferralStatusRoute, "", s.userToken)
	s.Equal(http.StatusOK, status)
	referral, ok := body["referral"].(map[string]any)
	s.Require().True(ok)
	s.Equal("BUYERX1A2B", referral["referralCode"])
	s.Equal(referredBy, referral["referredBy"])
	s.InDelta(3, referral["paidReferrals"], 0)
	s.InDelta(10, referral["requiredPaidReferrals"], 0)
	s.Equal(false, referral["unlocked"])
	s.InDelta(15, referral["freePaperLimit"], 0)
}

func (s *ReferralHandlerTestSuite) TestApply() {
	cases := []struct {
		name       string
		code       string
		err        error
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "applied",
			code:       "ALICE1A2B3",
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"success": true, "message": AppliedReferralMessage},
		},
		{
			name:       "own_code",
			code:       "BUYERX1A2B",
			err:        domain.ErrSelfReferral,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"success": false, "error": domain.ErrSelfReferral.Error()},
		},
		{
			name:       "already_applied",
			code:       "ALICE1A2B3",
			err:        domain.ErrAlreadyApplied,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"success": false, "error": domain.ErrAlreadyApplied.Error()},
		},
		{
			name:       "unknown_code",
			code:       "NOPE000000",
			err:        domain.ErrInvalidCode,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"success": false, "error": domain.ErrInvalidCode.Error()},
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			referrer := ""
			if tc.err == nil {
				referrer = "alice@example.com"
			}
			s.referrals.EXPECT().ApplyReferralCode(gomock.Any(), s.userEmail, tc.code).
				Return(referrer, tc.err).Times(1)

			status, body := s.doJSON(http.MethodPost, ReferralApplyRoute,
				`{"referralCode":"`+tc.code+`"}`, s.userToken)
			s.Equal(tc.wantStatus, status)
			s.Equal(tc.wantBody, body)
		})
	}
}

func (s *ReferralHandlerTestSuite) TestFreePaper() {
	s.Run("used", func() {
		s.referrals.EXPECT().UseFreePaper(gomock.Any(), s.userEmail).Return(4, nil).Times(1)

		status, body := s.doJSON(http.MethodPost, FreePaperRoute, "", s.userToken)
		s.Equal(http.StatusOK, status)
		s.InDelta(4, body["freePaperCount"], 0)
	})

	s.Run("locked", func() {
		s.referrals.EXPECT().UseFreePaper(gomock.Any(), s.userEmail).
			Return(0, domain.ErrReferralLocked).Times(1)

		status, body := s.doJSON(http.MethodPost, FreePaperRoute, "", s.userToken)
		s.Equal(http.StatusBadRequest, status)
		s.Equal(domain.ErrReferralLocked.Error(), body["error"])
	})

	s.Run("limit_reached", func() {
		s.referrals.EXPECT().UseFreePaper(gomock.Any(), s.userEmail).
			Return(15, domain.ErrFreePaperLimit).Times(1)

		status, body := s.doJSON(http.MethodPost, FreePaperRoute, "", s.userToken)
		s.Equal(http.StatusBadRequest, status)
		s.Equal(domain.ErrFreePaperLimit.Error(), body["error"])
	})
}
