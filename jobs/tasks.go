package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRoleBaselineRefresh invalidates and re-warms cached role baselines.
	TaskRoleBaselineRefresh = "rbac:baseline:refresh"
)

// RoleBaselineRefreshPayload selects the role to refresh. RoleID 0 refreshes every role.
type RoleBaselineRefreshPayload struct {
	RoleID int64 `json:"role_id"`
}

// NewRoleBaselineRefreshTask constructs an Asynq task.
func NewRoleBaselineRefreshTask(roleID int64) (*asynq.Task, error) {
	data, err := json.Marshal(RoleBaselineRefreshPayload{RoleID: roleID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRoleBaselineRefresh, data), nil
}
