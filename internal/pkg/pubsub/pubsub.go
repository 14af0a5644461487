package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelAnalysisEvents = "analysis_events"
)

// Event types pushed to the dashboard.
const (
	EventTaskUpdate = "task_update"
	EventAlert      = "alert"
)

// Event is one dashboard notification: a task state change or a new alert.
type Event struct {
	Type       string  `json:"type"`
	TaskID     int64   `json:"task_id,omitempty"`
	ImageID    string  `json:"image_id,omitempty"`
	CameraName string  `json:"camera_name,omitempty"`
	Status     string  `json:"status,omitempty"`
	AlertID    int64   `json:"alert_id,omitempty"`
	Severity   string  `json:"severity,omitempty"`
	Title      string  `json:"title,omitempty"`
	Message    string  `json:"message,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Publisher pushes events onto the shared redis channel.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends one event. A nil Publisher (redis not configured) is a no-op
// so the worker never depends on the event bus being up.
func (p *Publisher) Publish(ctx context.Context, event *Event) error {
	if p == nil || p.client == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.client.Publish(ctx, ChannelAnalysisEvents, data).Err()
}

// Subscriber receives events published by workers.
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Listen subscribes to the event channel and delivers decoded events until
// ctx is cancelled. Undecodable payloads are skipped.
func (s *Subscriber) Listen(ctx context.Context, handle func(*Event)) error {
	sub := s.client.Subscribe(ctx, ChannelAnalysisEvents)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			handle(&event)
		}
	}
}
