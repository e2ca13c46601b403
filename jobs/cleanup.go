package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/permission"
)

// TaskPermissionCleanup removes permission records left behind when the
// identity provider deprovisions a user or group, or when an entity is
// deleted outside the normal service path.
const TaskPermissionCleanup = "permission:cleanup"

// CleanupKind selects the cascade to run.
type CleanupKind string

const (
	CleanupUser   CleanupKind = "user"
	CleanupGroup  CleanupKind = "group"
	CleanupEntity CleanupKind = "entity"
)

// CleanupPayload describes one cleanup request.
type CleanupPayload struct {
	Kind      CleanupKind `json:"kind"`
	UserID    int64       `json:"userId,omitempty"`
	GroupID   int64       `json:"groupId,omitempty"`
	EntityID  int64       `json:"entityId,omitempty"`
	ClassName string      `json:"className,omitempty"`
}

// NewCleanupTask builds an asynq task for the given payload.
func NewCleanupTask(payload CleanupPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal cleanup payload: %w", err)
	}
	return asynq.NewTask(TaskPermissionCleanup, raw), nil
}

// CleanupJob handles permission cleanup tasks.
type CleanupJob struct {
	Cascade    *permission.Cascade
	Identities *identity.Service
	Logger     *slog.Logger
}

// NewCleanupJob initialises the cleanup handler.
func NewCleanupJob(cascade *permission.Cascade, identities *identity.Service, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{Cascade: cascade, Identities: identities, Logger: logger}
}

// Handle executes one cleanup task.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("permission cleanup: handler not configured")
	}
	var payload CleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	switch payload.Kind {
	case CleanupUser:
		user, err := j.Identities.UserByID(ctx, payload.UserID)
		if err != nil {
			return fmt.Errorf("permission cleanup: resolve user %d: %w", payload.UserID, err)
		}
		return j.Cascade.DeleteAllForUser(ctx, user)
	case CleanupGroup:
		group, err := j.Identities.GroupByID(ctx, payload.GroupID)
		if err != nil {
			return fmt.Errorf("permission cleanup: resolve group %d: %w", payload.GroupID, err)
		}
		return j.Cascade.DeleteAllForGroup(ctx, group)
	case CleanupEntity:
		return j.Cascade.DeleteAllForEntity(ctx, permission.EntityRef{
			ID:    payload.EntityID,
			Class: payload.ClassName,
		})
	default:
		j.Logger.Warn("unknown cleanup kind, skipping", slog.String("kind", string(payload.Kind)))
		return asynq.SkipRetry
	}
}
