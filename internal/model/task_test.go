package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		ok       bool
	}{
		{TaskStatusPending, TaskStatusProcessing, true},
		{TaskStatusProcessing, TaskStatusCompleted, true},
		{TaskStatusProcessing, TaskStatusPending, true},
		{TaskStatusProcessing, TaskStatusFailed, true},
		{TaskStatusPending, TaskStatusCompleted, false},
		{TaskStatusPending, TaskStatusFailed, false},
		{TaskStatusCompleted, TaskStatusPending, false},
		{TaskStatusCompleted, TaskStatusProcessing, false},
		{TaskStatusFailed, TaskStatusPending, false},
		{TaskStatusFailed, TaskStatusProcessing, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTaskStatus_ValidateTransition(t *testing.T) {
	err := TaskStatusCompleted.ValidateTransition(TaskStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.NoError(t, TaskStatusPending.ValidateTransition(TaskStatusProcessing))
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.True(t, TaskStatusCompleted.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
	assert.False(t, TaskStatusPending.Terminal())
	assert.False(t, TaskStatusProcessing.Terminal())
}

func TestAnalysisConfig_AppliesTo(t *testing.T) {
	all := &AnalysisConfig{CameraName: ""}
	assert.True(t, all.AppliesTo("North Gate"))
	assert.True(t, all.AppliesTo("Barn"))

	one := &AnalysisConfig{CameraName: "North Gate"}
	assert.True(t, one.AppliesTo("North Gate"))
	assert.False(t, one.AppliesTo("Barn"))
}
