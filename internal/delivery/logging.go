package delivery

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// LoggingClient logs every send of the wrapped client. Message bodies are
// never logged. The reply-to address only appears at debug level.
type LoggingClient struct {
	next Client
}

// NewLoggingClient wraps next with logging.
func NewLoggingClient(next Client) *LoggingClient {
	return &LoggingClient{next: next}
}

// Send is part of the Client interface.
func (c *LoggingClient) Send(ctx context.Context,
	params TemplateParams) fn.Result[Receipt] {

	start := time.Now()
	log.DebugS(ctx, "Sending contact message", "reply_to", params.ReplyTo)

	result := c.next.Send(ctx, params)

	receipt, err := result.Unpack()
	if err != nil {
		log.WarnS(ctx, "Contact message delivery failed", err,
			"duration", time.Since(start).String())

		return result
	}

	log.InfoS(ctx, "Contact message delivered",
		"status", receipt.Status,
		"duration", time.Since(start).String())

	return result
}

var _ Client = (*LoggingClient)(nil)
