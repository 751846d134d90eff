// Package jobs defines the Asynq background tasks: welcome mail for new
// staff accounts and the access log retention sweep.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeWelcomeEmail notifies a freshly created staff account.
	TaskTypeWelcomeEmail = "mail:bienvenida"
	// TaskTypeAuditRetention measures access log rows past the retention
	// window.
	TaskTypeAuditRetention = "audit:retencion"
)

// WelcomeEmailPayload describes the account to greet.
type WelcomeEmailPayload struct {
	Email  string `json:"email"`
	Nombre string `json:"nombre"`
	Rol    string `json:"rol"`
}

// NewWelcomeEmailTask constructs an Asynq task.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeWelcomeEmail, data), nil
}

// HandleWelcomeEmailTask processes TaskTypeWelcomeEmail tasks.
func HandleWelcomeEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: integrate with SMTP once the mail relay is provisioned.
	fmt.Printf("[jobs] bienvenida a %s (%s)\n", payload.Email, payload.Rol)
	return nil
}

// NewAuditRetentionTask constructs the periodic retention task. It carries
// no payload; the window comes from configuration at handler build time.
func NewAuditRetentionTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAuditRetention, nil)
}
