// Package events publishes cross-instance messages: cache invalidations and
// order notifications.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	applog "tokoku/internal/log"
)

const (
	TypeInvalidate  = "cache.invalidate"
	TypeOrderPlaced = "order.placed"
)

type Message struct {
	Type    string           `json:"type"`
	Source  string           `json:"source"`
	Keys    []string         `json:"keys,omitempty"`
	OrderID string           `json:"order_id,omitempty"`
	Total   *decimal.Decimal `json:"total,omitempty"`
	At      time.Time        `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, msg Message) error
	Close() error
}

// NopPublisher drops every message. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Message) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

// Bus stamps outgoing messages with this instance's id.
type Bus struct {
	pub    Publisher
	source string
	now    func() time.Time
}

func NewBus(pub Publisher, source string) *Bus {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Bus{pub: pub, source: source, now: time.Now}
}

func (b *Bus) Source() string { return b.source }

func (b *Bus) BroadcastInvalidate(ctx context.Context, keys []string) error {
	return b.pub.Publish(ctx, TypeInvalidate, Message{
		Type:   TypeInvalidate,
		Source: b.source,
		Keys:   keys,
		At:     b.now().UTC(),
	})
}

func (b *Bus) OrderPlaced(ctx context.Context, orderID string, total decimal.Decimal) error {
	return b.pub.Publish(ctx, orderID, Message{
		Type:    TypeOrderPlaced,
		Source:  b.source,
		OrderID: orderID,
		Total:   &total,
		At:      b.now().UTC(),
	})
}

func (b *Bus) Close() error { return b.pub.Close() }

// Handle returns a consumer handler that applies invalidations published by
// other instances. Messages from this instance are skipped.
func (b *Bus) Handle(apply func(keys []string)) MessageHandler {
	return func(ctx context.Context, _, value []byte) error {
		var msg Message
		if err := json.Unmarshal(value, &msg); err != nil {
			return errors.Wrap(err, "decode event")
		}
		if msg.Source == b.source {
			return nil
		}
		switch msg.Type {
		case TypeInvalidate:
			apply(msg.Keys)
		case TypeOrderPlaced:
			applog.L().Info().Str("order_id", msg.OrderID).Str("source", msg.Source).Msg("[events] order placed elsewhere")
		default:
			applog.L().Debug().Str("type", msg.Type).Msg("[events] ignoring message")
		}
		return nil
	}
}
