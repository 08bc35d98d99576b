package server

import (
	"errors"
	"io"
	"net/http"

	"gazette/internal/billing"
	"gazette/internal/persistence"
)

// maxWebhookBody bounds the webhook payload size.
const maxWebhookBody = 1 << 20

// CheckoutResponse carries the hosted checkout URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// handleCreateSubscription handles POST /subscription: it ensures the user
// has a billing customer and returns a subscription checkout URL.
func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	customerID, err := s.billing.EnsureCustomer(r.Context(), user.Email, user.StripeCustomerID)
	if err != nil {
		s.log.Error("Failed to ensure billing customer", "user_id", user.ID, "error", err)
		s.respondError(w, http.StatusBadGateway, "Billing provider error")
		return
	}

	if customerID != user.StripeCustomerID {
		if err := s.db.Users().SetStripeCustomerID(r.Context(), user.ID, customerID); err != nil {
			s.log.Error("Failed to store billing customer id", "user_id", user.ID, "error", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to start subscription")
			return
		}
	}

	checkoutURL, err := s.billing.CreateCheckoutSession(r.Context(), customerID)
	if err != nil {
		s.log.Error("Failed to create checkout session", "user_id", user.ID, "error", err)
		s.respondError(w, http.StatusBadGateway, "Billing provider error")
		return
	}

	s.respondJSON(w, http.StatusOK, CheckoutResponse{URL: checkoutURL})
}

// handleStripeWebhook handles POST /stripe-webhook: it verifies the provider
// signature and applies checkout.session.completed updates to the user row.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	update, err := s.billing.ParseWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, billing.ErrInvalidSignature) {
		s.respondError(w, http.StatusBadRequest, "Invalid signature")
		return
	}
	if errors.Is(err, billing.ErrInvalidPayload) {
		s.respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err != nil {
		s.log.Error("Failed to process webhook", "error", err)
		s.respondError(w, http.StatusBadGateway, "Billing provider error")
		return
	}

	if update == nil {
		// An event type this service does not act on.
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
		return
	}

	err = s.db.Users().UpdateSubscription(r.Context(), update.CustomerID, update.SubscriptionID, update.Status)
	if errors.Is(err, persistence.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "Unknown billing customer")
		return
	}
	if err != nil {
		s.log.Error("Failed to update subscription", "customer_id", update.CustomerID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to update subscription")
		return
	}

	s.log.Info("Subscription updated from webhook",
		"customer_id", update.CustomerID,
		"subscription_id", update.SubscriptionID,
		"status", update.Status)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
