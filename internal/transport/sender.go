// Package transport wraps the external transactional email API.
package transport

import "context"

// Message is one outbound email handed to the external API.
type Message struct {
	FromName  string
	FromEmail string
	To        string
	Subject   string
	HTML      string
}

// Sender delivers a single email. Implementations return an
// appErrors.ErrTransportFailure for provider/network errors so callers can
// route the failure into the retry path.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
