package ports

import "context"

// Notifier delivers short messages to a member's registered contact
// address. Delivery transport is a collaborator concern; the core only
// needs to know whether dispatch succeeded.
type Notifier interface {
	Send(ctx context.Context, contact, subject, body string) error
}
