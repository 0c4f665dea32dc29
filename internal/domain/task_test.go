package domain

import (
	"testing"
	"time"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	due := time.Now().Add(time.Hour)
	task, err := NewTask("owner-1", "  write report ", &due)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == "" {
		t.Error("Expected generated task ID")
	}

	if task.Title != "write report" {
		t.Errorf("Expected trimmed title, got %q", task.Title)
	}

	if task.Status != TaskStatusPending {
		t.Errorf("Expected status %s, got %s", TaskStatusPending, task.Status)
	}

	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}

	if _, err := NewTask("", "title", nil); err != ErrEmptyTaskOwnerID {
		t.Errorf("Expected error %v, got %v", ErrEmptyTaskOwnerID, err)
	}

	if _, err := NewTask("owner-1", "   ", nil); err != ErrEmptyTaskTitle {
		t.Errorf("Expected error %v, got %v", ErrEmptyTaskTitle, err)
	}
}

func TestTaskStatusValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusPending, true},
		{TaskStatusInProgress, true},
		{TaskStatusCompleted, true},
		{TaskStatus("bogus"), false},
		{TaskStatus(""), false},
	}

	for _, tc := range tests {
		if got := tc.status.Valid(); got != tc.want {
			t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestTaskIsOverdue(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"pending past due", Task{Status: TaskStatusPending, DueDate: &past}, true},
		{"pending future due", Task{Status: TaskStatusPending, DueDate: &future}, false},
		{"pending no due date", Task{Status: TaskStatusPending}, false},
		{"completed past due", Task{Status: TaskStatusCompleted, DueDate: &past}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.task.IsOverdue(now); got != tc.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tc.want)
			}
		})
	}
}
