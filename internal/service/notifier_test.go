package service

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger(t)
	n := NewLogNotifier(log)

	err := n.Notify(context.Background(), Notification{
		TaskID:  "t1",
		OwnerID: "alice",
		Title:   "Renew passport",
		DueDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	entries := buf.EntriesAtLevel(t, "INFO")
	require.Len(t, entries, 1)
	assert.Equal(t, "task overdue notification", entries[0]["msg"])
	assert.Equal(t, "t1", entries[0]["task_id"])
	assert.Equal(t, "alice", entries[0]["user_id"])
	assert.Equal(t, "notifier", entries[0]["component"])
}
