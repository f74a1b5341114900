package service_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskman/internal/service"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    service.Priority
		wantErr bool
	}{
		{"LOW", service.PriorityLow, false},
		{"medium", service.PriorityMedium, false},
		{" High ", service.PriorityHigh, false},
		{"urgent", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := service.ParsePriority(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    service.Status
		wantErr bool
	}{
		{"PENDING", service.StatusPending, false},
		{"in_progress", service.StatusInProgress, false},
		{"in-progress", service.StatusInProgress, false},
		{"completed", service.StatusCompleted, false},
		{"done", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := service.ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateNew(t *testing.T) {
	valid := service.Task{
		Title:       "Write report",
		Description: "Quarterly numbers",
		Priority:    service.PriorityLow,
		Status:      service.StatusPending,
	}
	require.NoError(t, service.ValidateNew(valid))

	missingTitle := valid
	missingTitle.Title = "  "
	err := service.ValidateNew(missingTitle)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrValidation))

	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "title", verr.Field)

	missingDesc := valid
	missingDesc.Description = ""
	err = service.ValidateNew(missingDesc)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "description", verr.Field)

	badPriority := valid
	badPriority.Priority = "URGENT"
	err = service.ValidateNew(badPriority)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "priority", verr.Field)
}

func TestValidateExisting_RequiresID(t *testing.T) {
	task := service.Task{
		Title:       "a",
		Description: "b",
		Priority:    service.PriorityHigh,
		Status:      service.StatusCompleted,
	}
	assert.ErrorIs(t, service.ValidateExisting(task), service.ErrValidation)

	task.ID = 7
	assert.NoError(t, service.ValidateExisting(task))
}
