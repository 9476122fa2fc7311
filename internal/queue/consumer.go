/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"bridge-reconcile-go/internal/alert"
	"bridge-reconcile-go/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var (
	ErrReconnectExhausted = errors.New("queue reconnect attempts exhausted")
	ErrMalformedMessage   = errors.New("malformed queue message")
)

// Handler processes one message body. A nil return acks the delivery.
type Handler func(ctx context.Context, body []byte) error

type route struct {
	handler Handler
	swallow bool
}

// acknowledger is the part of amqp.Delivery the dispatcher needs
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// ConsumerConfig contains configuration for Consumer
type ConsumerConfig struct {
	URL               string
	Prefetch          int
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	Alerter           alert.Alerter
}

// Consumer reads one durable queue per registered topic with manual acks
type Consumer struct {
	cfg    ConsumerConfig
	routes map[string]route
	dial   func(url string) (*amqp.Connection, error)
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.Alerter == nil {
		cfg.Alerter = alert.LogAlerter{}
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 10
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}

	return &Consumer{
		cfg:    cfg,
		routes: make(map[string]route),
		dial:   amqp.Dial,
	}
}

// Handle registers h for topic; failed deliveries are requeued
func (c *Consumer) Handle(topic string, h Handler) {
	c.routes[topic] = route{handler: h}
}

// HandleSwallow registers h for topic; failed deliveries are logged and acked
func (c *Consumer) HandleSwallow(topic string, h Handler) {
	c.routes[topic] = route{handler: h, swallow: true}
}

// Topics lists the registered topics in a stable order
func (c *Consumer) Topics() []string {
	topics := make([]string, 0, len(c.routes))
	for topic := range c.routes {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Run consumes until ctx is done. It returns ErrReconnectExhausted once the broker has been
// unreachable for more than ReconnectAttempts consecutive tries.
func (c *Consumer) Run(ctx context.Context) error {
	zap.L().Info("Starting queue consumer",
		zap.Strings("topics", c.Topics()),
		zap.Int("prefetch", c.cfg.Prefetch))

	failures := 0
	for {
		established, err := c.session(ctx)
		if ctx.Err() != nil {
			zap.L().Info("Queue consumer stopped")
			return nil
		}
		if established {
			failures = 0
		}
		failures++

		c.cfg.Alerter.Alert(ctx, alert.Alert{
			Title:    "Queue channel closed",
			Severity: alert.SeverityWarning,
			Fields: map[string]string{
				"attempt": fmt.Sprintf("%d/%d", failures, c.cfg.ReconnectAttempts),
			},
			Err: err,
		})

		if failures > c.cfg.ReconnectAttempts {
			return fmt.Errorf("%w: %v", ErrReconnectExhausted, err)
		}

		select {
		case <-time.After(c.cfg.ReconnectDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

// session runs one connection lifetime. established reports whether consumption started.
func (c *Consumer) session(ctx context.Context) (bool, error) {
	conn, err := c.dial(c.cfg.URL)
	if err != nil {
		return false, fmt.Errorf("failed to dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return false, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return false, fmt.Errorf("failed to set qos: %w", err)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	var wg sync.WaitGroup
	for _, topic := range c.Topics() {
		if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
			return false, fmt.Errorf("failed to declare queue %s: %w", topic, err)
		}

		deliveries, err := ch.Consume(topic, "", false, false, false, false, nil)
		if err != nil {
			return false, fmt.Errorf("failed to consume queue %s: %w", topic, err)
		}

		wg.Add(1)
		go func(topic string, deliveries <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range deliveries {
				c.dispatch(ctx, topic, d.Body, d)
			}
		}(topic, deliveries)
	}

	zap.L().Info("Queue session established", zap.String("url", redactURL(c.cfg.URL)))

	var sessionErr error
	select {
	case amqpErr := <-closed:
		if amqpErr != nil {
			sessionErr = amqpErr
		} else {
			sessionErr = errors.New("channel closed")
		}
	case <-ctx.Done():
	}

	ch.Close()
	wg.Wait()
	return true, sessionErr
}

func (c *Consumer) dispatch(ctx context.Context, topic string, body []byte, ack acknowledger) {
	r, ok := c.routes[topic]
	if !ok {
		zap.L().Warn("No handler for topic, dropping message", zap.String("topic", topic))
		if err := ack.Ack(false); err != nil {
			zap.L().Warn("Failed to ack message", zap.String("topic", topic), zap.Error(err))
		}
		return
	}

	runCtx := models.WithRunContext(ctx, &models.RunContext{
		RunId:   uuid.New().String(),
		Trigger: "queue",
		Stage:   topic,
	})

	err := r.handler(runCtx, body)
	switch {
	case err == nil:
		messagesTotal.WithLabelValues(topic, "acked").Inc()
		if err := ack.Ack(false); err != nil {
			zap.L().Warn("Failed to ack message", zap.String("topic", topic), zap.Error(err))
		}
	case r.swallow || errors.Is(err, ErrMalformedMessage):
		messagesTotal.WithLabelValues(topic, "dropped").Inc()
		zap.L().Error("Message handling failed, dropping",
			zap.String("topic", topic),
			zap.Error(err))
		if err := ack.Ack(false); err != nil {
			zap.L().Warn("Failed to ack message", zap.String("topic", topic), zap.Error(err))
		}
	case isPermanent(err):
		messagesTotal.WithLabelValues(topic, "rejected").Inc()
		zap.L().Error("Message cannot succeed on redelivery, dropping",
			zap.String("topic", topic),
			zap.Error(err))
		c.cfg.Alerter.Alert(runCtx, alert.Alert{
			Title:    "Queue message rejected",
			Severity: alert.SeverityWarning,
			Fields:   map[string]string{"topic": topic},
			Err:      err,
		})
		if err := ack.Ack(false); err != nil {
			zap.L().Warn("Failed to ack message", zap.String("topic", topic), zap.Error(err))
		}
	default:
		messagesTotal.WithLabelValues(topic, "requeued").Inc()
		zap.L().Warn("Message handling failed, requeueing",
			zap.String("topic", topic),
			zap.Error(err))
		if err := ack.Nack(false, true); err != nil {
			zap.L().Warn("Failed to nack message", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func redactURL(raw string) string {
	uri, err := amqp.ParseURI(raw)
	if err != nil {
		return "invalid"
	}
	uri.Password = ""
	return uri.String()
}
