package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	for _, bad := range []string{"", "pending", "APPROVED", "refunded"} {
		_, err := ParseStatus(bad)
		assert.Error(t, err, bad)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPendingApproval, StatusApproved, true},
		{StatusPendingApproval, StatusRejected, true},
		{StatusPendingApproval, StatusCancelled, true},
		{StatusPendingApproval, StatusShipped, false},
		{StatusApproved, StatusProcessing, true},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusPendingApproval, false},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusCompleted, true},
		{StatusShipped, StatusProcessing, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusRejected, StatusApproved, false},
		{StatusCancelled, StatusPendingApproval, false},
		{Status("bogus"), StatusApproved, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusFlags(t *testing.T) {
	terminal := map[Status]bool{StatusCompleted: true, StatusRejected: true, StatusCancelled: true}
	for _, s := range AllStatuses {
		assert.True(t, s.Valid(), s)
		assert.Equal(t, terminal[s], s.IsTerminal(), s)
		assert.Equal(t, s == StatusRejected || s == StatusCancelled, s.ReleasesStock(), s)
	}
	assert.False(t, Status("bogus").Valid())
	assert.False(t, Status("bogus").IsTerminal())
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultPageLimit}, Page{}.Normalize())
	assert.Equal(t, Page{Limit: MaxPageLimit, Offset: 5}, Page{Limit: 1000, Offset: 5}.Normalize())
	assert.Equal(t, Page{Limit: 10}, Page{Limit: 10, Offset: -3}.Normalize())
}
