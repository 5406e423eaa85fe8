package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopTicker struct{}

func (nopTicker) Tick(context.Context) (Summary, error) { return Summary{}, nil }

func TestNewTriggerValidatesSpec(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"@hourly", false},
		{"5 * * * *", false},
		{"*/15 9-23 * * *", false},
		{"every hour", true},
		{"", true},
		{"* * * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := NewTrigger(nopTicker{}, tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTriggerStartStop(t *testing.T) {
	tr, err := NewTrigger(nopTicker{}, "@hourly")
	require.NoError(t, err)

	require.NoError(t, tr.Start(context.Background()))
	require.NoError(t, tr.Start(context.Background()))
	tr.Stop()
	tr.Stop()
}
