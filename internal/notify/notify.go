// Package notify propagates attendance events to interested consumers.
// Clients that poll keep working; the bus exists so dashboards and the
// headcount worker can react without polling the ledger.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event describes one attendance write, keyed by the class session.
type Event struct {
	Kind        string    `json:"kind"`
	Subject     string    `json:"subject"`
	Time        string    `json:"time"`
	Room        string    `json:"room"`
	RollNumber  int       `json:"roll_number"`
	StudentName string    `json:"student_name"`
	Day         string    `json:"day"`
	At          time.Time `json:"at"`
}

const KindAttendanceMarked = "attendance.marked"

// Channel is the bus-wide channel all events land on.
const Channel = "attendance.events"

// SessionChannel scopes a subscription to one class session.
func (e Event) SessionChannel() string {
	return "attendance.session." + e.Subject + "|" + e.Time + "|" + e.Room
}

// HeadcountKey is the Redis counter the worker maintains per session
// and day; the teacher dashboard reads it before falling back to a
// ledger count.
func HeadcountKey(subject, classTime, room, day string) string {
	return "headcount:" + subject + "|" + classTime + "|" + room + "|" + day
}

func (e Event) HeadcountKey() string {
	return HeadcountKey(e.Subject, e.Time, e.Room, e.Day)
}

// Bus is the abstraction over different backends.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// InMemory is a channel-backed bus for dev and tests. Single consumer.
type InMemory struct {
	ch chan Event
}

// NewInMemory creates a bounded in-memory bus.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Event, size)}
}

func (b *InMemory) Publish(ctx context.Context, evt Event) error {
	select {
	case b.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *InMemory) Subscribe(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-b.ch:
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisBus publishes over Redis pub/sub, both on the bus-wide channel
// and on the event's session channel.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return err
	}
	return b.client.Publish(ctx, evt.SessionChannel(), payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := b.client.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, err
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
