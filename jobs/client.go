package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// RefreshUniqueWindow is how long an enqueued refresh for one role suppresses duplicates.
const RefreshUniqueWindow = time.Minute

func refreshOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(RefreshUniqueWindow),
	}
}

// Client enqueues baseline refreshes after role changes.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueRoleBaselineRefresh enqueues a baseline refresh for roleID (0 = every role).
// A refresh already pending for the same role is not an error.
func (c *Client) EnqueueRoleBaselineRefresh(ctx context.Context, roleID int64) error {
	task, err := NewRoleBaselineRefreshTask(roleID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, refreshOptions()...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
