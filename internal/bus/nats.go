// Package bus publishes dock events to NATS for consumers outside the
// dashboard, such as the controller that drives the physical LEDs.
package bus

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher sends JSON payloads under a subject prefix. A nil *Publisher
// is valid and drops everything, which is what an unconfigured bus gives.
type Publisher struct {
	Conn   *nats.Conn
	prefix string
}

// NewPublisher connects to url. An empty url means no bus: it returns a
// nil Publisher and no error.
func NewPublisher(url, prefix string) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := nats.Connect(url,
		nats.Name("firextd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &Publisher{Conn: conn, prefix: prefix}, nil
}

// Subject joins the prefix and the given token.
func (p *Publisher) Subject(token string) string {
	if p == nil || p.prefix == "" {
		return token
	}
	return p.prefix + "." + token
}

// Publish marshals payload and sends it on prefix.token.
func (p *Publisher) Publish(token string, payload any) error {
	if p == nil || p.Conn == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal bus payload: %w", err)
	}
	return p.Conn.Publish(p.Subject(token), data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.Conn == nil {
		return
	}
	if err := p.Conn.Drain(); err != nil {
		log.Printf("NATS drain failed: %v", err)
	}
	p.Conn.Close()
}
