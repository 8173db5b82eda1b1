// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package bus is the in-process event broadcast used to decouple the recorder
// state machine from whichever UI or uploader is listening.
package bus

import "context"

// Message is an opaque event payload.
type Message any

// Subscriber receives messages for one topic until closed.
type Subscriber interface {
	C() <-chan Message
	Close() error
}

// Bus is a topic based publish/subscribe transport.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}
