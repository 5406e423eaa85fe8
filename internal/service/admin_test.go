package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminGate(t *testing.T) {
	tr := newFakeTransport()
	tr.admins[-100] = []int64{1, 2}
	gate := NewAdminGate(tr, []int64{99})
	ctx := context.Background()

	tests := []struct {
		name   string
		chatID int64
		userID int64
		want   bool
	}{
		{"chat admin", -100, 2, true},
		{"member", -100, 3, false},
		{"operator", -100, 99, true},
		{"private chat", 5, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.IsAdmin(ctx, tt.chatID, tt.userID))
		})
	}
}

func TestAdminGate_LookupFailureDenies(t *testing.T) {
	tr := newFakeTransport()
	tr.admins[-100] = []int64{1}
	tr.adminErr = errors.New("network down")

	assert.False(t, NewAdminGate(tr, nil).IsAdmin(context.Background(), -100, 1))
}
