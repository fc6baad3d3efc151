// Package logsink writes audit events to the structured log.
package logsink

import (
	"context"
	"log/slog"

	audit "donorhub/pkg/platform/audit"
)

// Publisher logs each event at info level under the "audit" group.
type Publisher struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Publisher {
	return &Publisher{logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	p.logger.InfoContext(ctx, "audit event",
		slog.Group("audit",
			"category", event.Category,
			"action", event.Action,
			"timestamp", event.Timestamp,
			"actor_id", event.ActorID.String(),
			"subject", event.Subject,
			"email", event.Email,
			"reason", event.Reason,
			"client_ip", event.ClientIP,
		),
		"request_id", event.RequestID,
	)
	return nil
}
