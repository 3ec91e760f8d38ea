package events

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// Subscriber hands NATS message payloads to callbacks
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber creates a subscriber on an open connection
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// Subscribe calls handle with every payload on subject until the returned
// function is called
func (s *Subscriber) Subscribe(subject string, handle func(data []byte)) (func(), error) {
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		handle(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}
