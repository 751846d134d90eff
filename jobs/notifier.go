package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Notifier enqueues tasks triggered by domain events. Enqueue failures
// are logged, never bubbled: a dropped welcome mail must not fail the
// account creation that caused it.
type Notifier struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewNotifier(client *asynq.Client, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, logger: logger}
}

// StaffCreated queues the welcome email for a new account.
func (n *Notifier) StaffCreated(ctx context.Context, email, nombre, rol string) {
	task, err := NewWelcomeEmailTask(WelcomeEmailPayload{Email: email, Nombre: nombre, Rol: rol})
	if err != nil {
		n.logger.Error("jobs: build welcome task", slog.Any("error", err))
		return
	}
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		n.logger.Error("jobs: enqueue welcome task", slog.Any("error", err))
	}
}
