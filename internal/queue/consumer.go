// Package queue consumes a Redis stream through a consumer group. Entries
// left pending by a crashed or failing consumer are reclaimed after the
// claim interval and dropped once they exceed the delivery limit.
package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg redis.XMessage) error
}

type Options struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	MaxDeliveries int64
	Block         time.Duration
	BatchSize     int64
}

type Consumer struct {
	client  *redis.Client
	opts    Options
	logger  zerolog.Logger
	handler MessageHandler
}

func NewConsumer(client *redis.Client, opts Options, logger zerolog.Logger, handler MessageHandler) *Consumer {
	if opts.ClaimInterval <= 0 {
		opts.ClaimInterval = 30 * time.Second
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 5
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &Consumer{
		client:  client,
		opts:    opts,
		logger:  logger.With().Str("stream", opts.Stream).Str("group", opts.Group).Logger(),
		handler: handler,
	}
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.opts.Stream, c.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(c.opts.ClaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.read(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("stream read error")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(2 * time.Second):
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.claimStalled(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("claim stalled entries failed")
			}
		default:
		}
	}
}

func (c *Consumer) read(ctx context.Context) error {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		Streams:  []string{c.opts.Stream, ">"},
		Count:    c.opts.BatchSize,
		Block:    c.opts.Block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.process(ctx, msg)
		}
	}
	return nil
}

// process acks only on success; failures stay pending for claimStalled.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Error().
			Err(err).
			Str("message_id", msg.ID).
			Msg("handle message failed")
		return
	}
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.opts.Stream, c.opts.Group, id).Err(); err != nil {
		c.logger.Error().Err(err).Str("message_id", id).Msg("ack failed")
	}
}

func (c *Consumer) claimStalled(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.opts.Stream,
		Group:  c.opts.Group,
		Idle:   c.opts.ClaimInterval,
		Start:  "-",
		End:    "+",
		Count:  c.opts.BatchSize,
	}).Result()
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if entry.RetryCount >= c.opts.MaxDeliveries {
			c.logger.Warn().
				Str("message_id", entry.ID).
				Int64("deliveries", entry.RetryCount).
				Msg("dropping message after too many deliveries")
			c.ack(ctx, entry.ID)
			continue
		}

		msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.opts.Stream,
			Group:    c.opts.Group,
			Consumer: c.opts.Consumer,
			MinIdle:  c.opts.ClaimInterval,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			c.logger.Error().Err(err).Str("message_id", entry.ID).Msg("claim error")
			continue
		}
		for _, msg := range msgs {
			c.process(ctx, msg)
		}
	}
	return nil
}
