package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// billingEvent is the external billing provider's subscription lifecycle
// notification.
type billingEvent struct {
	CustomerEmail      string `json:"customer_email"`
	SubscriptionStatus string `json:"subscription_status"`
}

// MapSubscriptionStatus maps an external subscription lifecycle state to the
// internal plan/status pair. Unknown states read as a lapsed subscription.
func MapSubscriptionStatus(external string) (plan, internal string) {
	switch external {
	case "active":
		return "pro", "active"
	case "trialing":
		return "pro", "trialing"
	case "past_due":
		return "pro", "past_due"
	case "canceled", "unpaid", "incomplete_expired":
		return "free", "canceled"
	default:
		return "free", "inactive"
	}
}

// VerifyBillingSignature checks an HMAC-SHA256 signature over the raw body
// against the hex signature the provider supplies, in constant time.
func VerifyBillingSignature(secret, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// handleBillingWebhook updates the billing account record. It shares the
// store with the status core but is otherwise independent of it.
func (s *Server) handleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	signature := r.Header.Get("X-Signature")
	if s.billingSecret == "" || !VerifyBillingSignature([]byte(s.billingSecret), body, signature) {
		s.logger.Warn("Billing webhook rejected: bad signature", "remote", r.RemoteAddr)
		s.writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event billingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if event.CustomerEmail == "" {
		s.writeError(w, http.StatusBadRequest, "missing customer_email")
		return
	}

	plan, internal := MapSubscriptionStatus(event.SubscriptionStatus)
	account := &status.Account{
		Email:     event.CustomerEmail,
		Plan:      plan,
		Status:    internal,
		UpdatedAt: time.Now(),
	}
	if err := s.prefs.SaveAccount(r.Context(), account); err != nil {
		s.logger.Error("Failed to save billing account", "email", event.CustomerEmail, "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not persist account")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"plan":   plan,
		"status": internal,
	})
}
