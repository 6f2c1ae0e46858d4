package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{name: "pending to confirmed", from: StatusPending, to: StatusConfirmed},
		{name: "pending to cancelled", from: StatusPending, to: StatusCancelled},
		{name: "confirmed to cancelled", from: StatusConfirmed, to: StatusCancelled},
		{name: "confirmed to pending", from: StatusConfirmed, to: StatusPending, wantErr: true},
		{name: "confirmed twice", from: StatusConfirmed, to: StatusConfirmed, wantErr: true},
		{name: "cancelled is final", from: StatusCancelled, to: StatusConfirmed, wantErr: true},
		{name: "cancelled twice", from: StatusCancelled, to: StatusCancelled, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.to)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got)
		})
	}
}

func TestValidateDateTime(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateDateTime(now.Add(time.Minute), now))
	assert.ErrorIs(t, ValidateDateTime(now, now), ErrNotInFuture)
	assert.ErrorIs(t, ValidateDateTime(now.Add(-time.Hour), now), ErrNotInFuture)
}

func TestValidateGuests(t *testing.T) {
	assert.NoError(t, ValidateGuests(MinGuests))
	assert.NoError(t, ValidateGuests(MaxGuests))
	assert.ErrorIs(t, ValidateGuests(0), ErrInvalidGuests)
	assert.ErrorIs(t, ValidateGuests(MaxGuests+1), ErrInvalidGuests)
}
