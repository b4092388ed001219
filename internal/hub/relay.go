package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Publisher is the part of *redis.Client the relay needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Envelope is what other processes read from the relay channel.
type Envelope struct {
	ID      string             `msgpack:"id"`
	Signal  string             `msgpack:"signal"`
	SentAt  int64              `msgpack:"sentAt"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

type RedisRelay struct {
	sugar     *zap.SugaredLogger
	publisher Publisher
	channel   string
}

func NewRedisRelay(sugar *zap.SugaredLogger, publisher Publisher, channel string) *RedisRelay {
	return &RedisRelay{
		sugar:     sugar,
		publisher: publisher,
		channel:   channel,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, signal string, payload []byte) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	bytes, err := msgpack.Marshal(Envelope{
		ID:      id.String(),
		Signal:  signal,
		SentAt:  time.Now().UnixMilli(),
		Payload: payload,
	})
	if err != nil {
		return err
	}

	r.sugar.Debugf("Relaying signal %s to redis channel %s", signal, r.channel)

	err = r.publisher.Publish(ctx, r.channel, bytes).Err()
	if err != nil {
		return fmt.Errorf("error publishing to redis channel %s: %w", r.channel, err)
	}
	return nil
}

func DecodeEnvelope(bytes []byte) (Envelope, error) {
	var envelope Envelope
	err := msgpack.Unmarshal(bytes, &envelope)
	return envelope, err
}

// Tail subscribes to a relay channel and hands every envelope to handler
// until ctx is done. Payloads that aren't envelopes are logged and skipped.
func Tail(ctx context.Context, sugar *zap.SugaredLogger, rdb *redis.Client, channel string, handler func(Envelope)) error {
	pubsub := rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	_, err := pubsub.Receive(ctx)
	if err != nil {
		return fmt.Errorf("error subscribing to redis channel %s: %w", channel, err)
	}

	sugar.Infof("Tailing redis channel %s", channel)
	tailMessages(ctx, sugar, pubsub.Channel(), handler)
	return nil
}

func tailMessages(ctx context.Context, sugar *zap.SugaredLogger, messages <-chan *redis.Message, handler func(Envelope)) {
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-messages:
			if !ok {
				return
			}

			envelope, err := DecodeEnvelope([]byte(message.Payload))
			if err != nil {
				sugar.Warnf("Skipping malformed envelope on redis channel %s: %v", message.Channel, err)
				continue
			}
			handler(envelope)
		}
	}
}
