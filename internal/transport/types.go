package transport

import "context"

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string // "HTML" or empty for plain text
	DisablePreview bool
}

// Message is an incoming command message, platform-agnostic.
type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int
	FromID       int64
	FromUsername string
	Text         string
}

// CommandFunc handles an operational command and returns the reply text.
// A returned error is logged and surfaced to the chat as a short failure line.
type CommandFunc func(ctx context.Context, msg Message) (string, error)

// Gateway is the outbound notification boundary. Delivery internals
// (long-polling, rate limits, message size) belong to the implementation.
type Gateway interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
