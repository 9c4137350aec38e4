package goPassport

import (
	"context"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goPassport/internal/audit"
)

const (
	auditEventCredentialAuthenticated = "credential_authenticated"
	auditEventCredentialRejected      = "credential_rejected"
	auditEventTokenAuthenticated      = "token_authenticated"
	auditEventTokenGraceAccepted      = "token_grace_accepted"
	auditEventTokenRejected           = "token_rejected"
)

// observer bundles the ambient collaborators shared by both strategies.
type observer struct {
	metrics *Metrics
	audit   auditEmitter
	logger  *slog.Logger
	now     func() time.Time
}

// auditEmitter stamps request-scoped fields onto events before handing them to
// the dispatcher. The zero value drops everything.
type auditEmitter struct {
	dispatcher *internalaudit.Dispatcher
	now        func() time.Time
}

func (a auditEmitter) emit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	kind RejectionKind,
	metadata map[string]string,
) {
	if a.dispatcher == nil {
		return
	}

	event := AuditEvent{
		EventType: eventType,
		RequestID: requestIDFromContext(ctx),
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if a.now != nil {
		event.Timestamp = a.now().UTC()
	}
	if kind != KindNone {
		event.Error = kind.String()
	}

	a.dispatcher.Emit(ctx, event)
}
