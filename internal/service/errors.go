package service

import (
	"errors"
	"fmt"
)

// Errors surfaced by the season services.
var (
	// ErrStore wraps every persistence failure; the caller aborts the current chat for this tick.
	ErrStore = errors.New("store failure")
	// ErrNoCandidates means the window holds no eligible games; nothing is published this tick.
	ErrNoCandidates = errors.New("no candidate games")
	// ErrUnknownPoll is returned for answers to polls this bot never recorded.
	ErrUnknownPoll = errors.New("unknown poll")
	// ErrInvalidOption is returned for an option index outside the two poll options.
	ErrInvalidOption = errors.New("invalid poll option")
)

// TransportErrorKind classifies transport failures.
type TransportErrorKind int

const (
	// TransportRetryable covers network failures, timeouts and rate limits.
	TransportRetryable TransportErrorKind = iota
	// TransportChatGone means the chat no longer accepts messages from the bot.
	TransportChatGone
)

func (k TransportErrorKind) String() string {
	if k == TransportChatGone {
		return "chat_gone"
	}
	return "retryable"
}

// TransportError is a classified failure of the chat transport.
type TransportError struct {
	Kind TransportErrorKind
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsChatGone reports whether err is a permanent chat-gone transport failure.
func IsChatGone(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == TransportChatGone
}

// IsRetryable reports whether err is a transport failure worth retrying next tick.
// Unclassified errors are treated as retryable.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind == TransportRetryable
	}
	return err != nil
}

// storeErr tags a repository failure with ErrStore.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
