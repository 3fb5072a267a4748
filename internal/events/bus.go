// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/metrics"
)

const correlationIDMetadataKey = "correlation_id"

// RouterConfig holds configuration for the bus router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// OutputBuffer is the per subscriber channel buffer of the in-process pub/sub.
	OutputBuffer int64
}

// DefaultRouterConfig returns production defaults for the router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         10 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RetryMultiplier:      2.0,
		OutputBuffer:         64,
	}
}

type registration struct {
	name    string
	topic   string
	handler message.NoPublishHandlerFunc
}

// Bus is an in-process event bus: a watermill GoChannel pub/sub with a
// router providing panic recovery and retries. Handlers are registered before
// Serve; each Serve run builds a fresh router so the bus survives restarts.
type Bus struct {
	cfg    RouterConfig
	logger watermill.LoggerAdapter
	pubsub *gochannel.GoChannel

	mu       sync.Mutex
	handlers []registration

	readyOnce sync.Once
	ready     chan struct{}
}

// NewBus creates a bus. A nil logger uses the zerolog adapter.
func NewBus(cfg RouterConfig, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = logging.NewWatermillAdapter()
	}
	return &Bus{
		cfg:    cfg,
		logger: logger,
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.OutputBuffer}, logger),
		ready:  make(chan struct{}),
	}
}

// Publish marshals payload as JSON and publishes it on topic. Events
// published while no router is running are dropped.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(correlationIDMetadataKey, id)
	}
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Handle registers a consumer for topic. It must be called before Serve.
func (b *Bus) Handle(name, topic string, handler message.NoPublishHandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, registration{name: name, topic: topic, handler: handler})
}

// Ready is closed once the first router is running and subscribed.
func (b *Bus) Ready() <-chan struct{} {
	return b.ready
}

func (b *Bus) newRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: b.cfg.CloseTimeout}, b.logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	// Recoverer: convert panics to errors
	router.AddMiddleware(middleware.Recoverer)

	// Retry: exponential backoff for failing handlers
	retry := middleware.Retry{
		MaxRetries:      b.cfg.RetryMaxRetries,
		InitialInterval: b.cfg.RetryInitialInterval,
		MaxInterval:     b.cfg.RetryMaxInterval,
		Multiplier:      b.cfg.RetryMultiplier,
		Logger:          b.logger,
	}
	router.AddMiddleware(retry.Middleware)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range b.handlers {
		router.AddConsumerHandler(h.name, h.topic, b.pubsub, h.handler)
	}
	return router, nil
}

// Serve runs the router until ctx is done. It implements suture.Service.
func (b *Bus) Serve(ctx context.Context) error {
	router, err := b.newRouter()
	if err != nil {
		return err
	}
	go func() {
		select {
		case <-router.Running():
			b.readyOnce.Do(func() { close(b.ready) })
		case <-ctx.Done():
		}
	}()

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

// String names the bus in supervisor logs.
func (b *Bus) String() string { return "event-bus" }

// Close shuts down the pub/sub. Subscribers stop receiving.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// messageContext returns the message context with its correlation id restored.
func messageContext(msg *message.Message) context.Context {
	ctx := msg.Context()
	if id := msg.Metadata.Get(correlationIDMetadataKey); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	return ctx
}
