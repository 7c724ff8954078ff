package api

import (
	"context"
	"net/http"

	"github.com/fsdevblog/paperify-pay/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

const AppliedReferralMessage = "Referral code applied successfully"

type ReferralHandler struct {
	referrals ReferralServicer
}

func NewReferralHandler(referrals ReferralServicer) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

func (h *ReferralHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	status, err := h.referrals.GetStatus(ctx, middlewares.CurrentUserEmail(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"referral": gin.H{
			"referralCode":          status.ReferralCode,
			"referredBy":            status.ReferredBy,
			"paidReferrals":         status.PaidReferrals,
			"requiredPaidReferrals": status.RequiredPaidReferrals,
			"unlocked":              status.Unlocked,
			"freePaperCount":        status.FreePaperCount,
			"freePaperLimit":        status.FreePaperLimit,
		},
	})
}

// ApplyReferralParams email берется только из сессии.
type ApplyReferralParams struct {
	ReferralCode string `binding:"max_bytes=64" json:"referralCode"`
}

func (h *ReferralHandler) Apply(c *gin.Context) {
	var params ApplyReferralParams
	if err := c.ShouldBindJSON(&params); err != nil {
		abortWithError(c, http.StatusBadRequest, err, gin.ErrorTypeBind)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	if _, err := h.referrals.ApplyReferralCode(ctx, middlewares.CurrentUserEmail(c), params.ReferralCode); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": AppliedReferralMessage})
}

func (h *ReferralHandler) FreePaper(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	count, err := h.referrals.UseFreePaper(ctx, middlewares.CurrentUserEmail(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "freePaperCount": count})
}
