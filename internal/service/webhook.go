package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/domain"
	"github.com/rhaddadin/remitjo/internal/observability"
	"github.com/rhaddadin/remitjo/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMalformedEvent   = errors.New("malformed event payload")
)

// WebhookService reconciles gateway event notifications against stored
// transactions. It is the only component that mutates transaction status.
type WebhookService struct {
	store   TransactionStore
	logs    WebhookLogStore
	hmacKey []byte
	skipSig bool
}

func NewWebhookService(store TransactionStore, logs WebhookLogStore, hmacKey string, skipSignature bool) *WebhookService {
	return &WebhookService{
		store:   store,
		logs:    logs,
		hmacKey: []byte(hmacKey),
		skipSig: skipSignature,
	}
}

// event is the tagged decode of a gateway notification: the event type
// selects the transition, data.object.id carries the session correlation id.
type event struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// Outcome reports what a delivery did. Received is always true once the
// event passed signature and parse checks; Applied is true only when this
// delivery performed the status transition.
type Outcome struct {
	Received      bool       `json:"received"`
	Applied       bool       `json:"-"`
	EventType     string     `json:"-"`
	Status        string     `json:"-"`
	TransactionID *uuid.UUID `json:"-"`
}

// HandleEvent runs the reconciliation state machine for one delivery:
//
//	pending --checkout.session.completed--> completed
//	pending --checkout.session.expired-->   expired
//	pending --payment_intent.payment_failed--> failed
//
// Deliveries for a transaction already in a terminal state are acknowledged
// without mutation; gateways retry undelivered webhooks, so the same event
// arriving twice must be harmless. Unknown event types and unknown session
// ids are also acknowledged (forward compatibility, and stale/foreign events
// must not cause retry storms). Only signature failures, malformed payloads,
// and persistence errors are reported as errors.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) (*Outcome, error) {
	if !s.verifyHMAC(payload, signature) {
		observability.IncrementWebhookEvent("unknown", "bad_signature")
		return nil, ErrInvalidSignature
	}

	var ev event
	if err := json.Unmarshal(payload, &ev); err != nil {
		observability.IncrementWebhookEvent("unknown", "malformed")
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Type == "" {
		observability.IncrementWebhookEvent("unknown", "malformed")
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}

	nextStatus, known := domain.StatusForEvent(ev.Type)
	if !known {
		zap.L().Info("ignoring unhandled webhook event type", zap.String("event_type", ev.Type))
		observability.IncrementWebhookEvent(ev.Type, "ignored")
		return &Outcome{Received: true, EventType: ev.Type}, nil
	}

	sessionID := ev.Data.Object.ID
	if sessionID == "" {
		observability.IncrementWebhookEvent(ev.Type, "malformed")
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedEvent)
	}

	tx, err := s.store.GetTransactionBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Stale or foreign event. Acknowledge so the gateway stops
			// retrying; nothing here to reconcile.
			zap.L().Warn("webhook for unknown session",
				zap.String("event_type", ev.Type),
				zap.String("session_id", sessionID))
			observability.IncrementWebhookEvent(ev.Type, "unknown_session")
			return &Outcome{Received: true, EventType: ev.Type}, nil
		}
		return nil, fmt.Errorf("lookup transaction for session %s: %w", sessionID, err)
	}

	applied, err := s.store.TransitionStatus(ctx, sessionID, nextStatus)
	if err != nil {
		return nil, fmt.Errorf("transition transaction %s to %s: %w", tx.ID, nextStatus, err)
	}

	outcome := &Outcome{
		Received:      true,
		Applied:       applied,
		EventType:     ev.Type,
		Status:        nextStatus,
		TransactionID: &tx.ID,
	}

	if applied {
		zap.L().Info("transaction status updated",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("session_id", sessionID),
			zap.String("event_type", ev.Type),
			zap.String("status", nextStatus))
		observability.IncrementWebhookEvent(ev.Type, "applied")
	} else {
		zap.L().Info("webhook no-op, transaction already terminal",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("status", tx.Status))
		observability.IncrementWebhookEvent(ev.Type, "noop")
	}

	if s.logs != nil {
		if err := s.logs.InsertWebhookLog(ctx, &tx.ID, ev.Type, payload); err != nil {
			// The transition already happened; losing the log row is not
			// worth a 5xx and a gateway redelivery.
			zap.L().Warn("failed to record webhook log", zap.Error(err))
		}
	}

	return outcome, nil
}

// verifyHMAC checks the sha256=<hex> signature over the raw payload.
func (s *WebhookService) verifyHMAC(payload []byte, signature string) bool {
	if s.skipSig {
		return true
	}
	if len(s.hmacKey) == 0 {
		return false
	}

	h := hmac.New(sha256.New, s.hmacKey)
	h.Write(payload)
	expectedSig := "sha256=" + hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
