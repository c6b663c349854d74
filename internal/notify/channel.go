// Package notify abstracts the outbound chat channels alerts are
// delivered through.
package notify

import "context"

// Channel sends a text message to a recipient. Send must only return
// nil once the channel has confirmed delivery; callers use that signal
// to decide whether a delivery may be recorded.
type Channel interface {
	Name() string
	Send(ctx context.Context, recipientID, text string) error
}
