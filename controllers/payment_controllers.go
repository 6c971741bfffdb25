package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
)

const (
	billingSignatureHeader = "X-Billing-Signature"
	maxWebhookBody         = 1 << 20
)

// PaymentController receives the billing provider's webhooks.
type PaymentController struct {
	Subscriptions *services.SubscriptionService
	webhookSecret string
}

func NewPaymentController(subscriptions *services.SubscriptionService, webhookSecret string) *PaymentController {
	return &PaymentController{Subscriptions: subscriptions, webhookSecret: webhookSecret}
}

func (pc *PaymentController) verifySignature(signature string, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(pc.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// BillingWebhook -> POST /webhooks/billing
func (pc *PaymentController) BillingWebhook(c *gin.Context) {
	if pc.webhookSecret == "" {
		utils.RespondError(c, http.StatusServiceUnavailable, errors.New("Billing webhooks are not configured"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Failed to read request body"))
		return
	}

	signature := c.GetHeader(billingSignatureHeader)
	if signature == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Missing billing signature"))
		return
	}
	if !pc.verifySignature(signature, body) {
		utils.ErrorLogger.Printf("Rejected billing webhook with bad signature from %s", c.ClientIP())
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid webhook signature"))
		return
	}

	var event services.BillingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid webhook payload"))
		return
	}

	if err := pc.Subscriptions.HandleBillingEvent(c.Request.Context(), event); err != nil {
		respondServiceError(c, err, "process billing event")
		return
	}

	utils.InfoLogger.Printf("Billing event %s (%s) processed", event.ID, event.Type)
	utils.RespondJSON(c, http.StatusOK, "Webhook processed", nil)
}
