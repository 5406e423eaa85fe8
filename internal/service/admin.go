package service

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"
)

// AdminGate authorizes season-ending actions.
type AdminGate struct {
	transport Transport
	operators []int64
}

// NewAdminGate creates an AdminGate. Operators are admins in every chat.
func NewAdminGate(transport Transport, operators []int64) *AdminGate {
	return &AdminGate{transport: transport, operators: operators}
}

// IsAdmin reports whether userID may stop the chat's season.
// A private chat (chat id equal to user id) is administered by its user.
// Lookup failures deny.
func (g *AdminGate) IsAdmin(ctx context.Context, chatID, userID int64) bool {
	if slices.Contains(g.operators, userID) || chatID == userID {
		return true
	}

	admins, err := g.transport.GetAdmins(ctx, chatID)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Int64("user_id", userID).Msg("Admin lookup failed, denying")
		return false
	}
	return slices.Contains(admins, userID)
}
