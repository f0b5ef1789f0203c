package domain

// Currencies handled by the service. Cards are charged in EUR; payouts land in JOD.
const (
	CurrencyEUR = "EUR"
	CurrencyJOD = "JOD"
)

// Transaction statuses. A transaction starts as pending and moves to exactly
// one terminal status; terminal statuses are absorbing.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

// Gateway event types delivered to the webhook endpoint.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventPaymentFailed     = "payment_intent.payment_failed"
)

var eventStatus = map[string]string{
	EventCheckoutCompleted: StatusCompleted,
	EventCheckoutExpired:   StatusExpired,
	EventPaymentFailed:     StatusFailed,
}

// StatusForEvent maps a gateway event type onto the terminal status it
// implies. Unknown event types return false so callers can soft-accept them.
func StatusForEvent(eventType string) (string, bool) {
	status, ok := eventStatus[eventType]
	return status, ok
}

// ValidStatus reports whether s names a known transaction status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}
