package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/snowflake"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

type fakePublisher struct {
	channels []string
	messages [][]byte
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, message.([]byte))
	return redis.NewIntResult(1, p.err)
}

func TestEmitReachesSubscribersInOrder(t *testing.T) {
	h := New(zap.NewNop().Sugar())

	var order []string
	On(h, ServerCreate, func(server *models.Server) {
		order = append(order, "first "+server.Name)
	})
	On(h, ServerCreate, func(server *models.Server) {
		order = append(order, "second "+server.Name)
	})
	On(h, ServerAvailable, func(server *models.Server) {
		order = append(order, "wrong signal")
	})

	server := models.NewServer(1)
	server.Name = "general"
	Emit(h, ServerCreate, server)

	if len(order) != 2 || order[0] != "first general" || order[1] != "second general" {
		t.Fatalf("unexpected delivery order: %v", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	h := New(zap.NewNop().Sugar())

	count := 0
	unsubscribe := On(h, ServerMemberRemove, func(snowflake.ID) {
		count++
	})
	Emit(h, ServerMemberRemove, 5)
	unsubscribe()
	unsubscribe()
	Emit(h, ServerMemberRemove, 5)

	if count != 1 {
		t.Fatalf("expected one delivery, got %d", count)
	}
	if n := h.SubscriberCount(ServerMemberRemove.Name()); n != 0 {
		t.Fatalf("expected no subscribers left, got %d", n)
	}
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	h := New(zap.NewNop().Sugar())

	delivered := false
	On(h, Error, func(error) {
		panic("boom")
	})
	On(h, Error, func(error) {
		delivered = true
	})
	Emit(h, Error, errors.New("failed"))

	if !delivered {
		t.Fatal("second subscriber was skipped")
	}
}

func TestRelayPublishesEnvelope(t *testing.T) {
	publisher := &fakePublisher{}
	h := New(zap.NewNop().Sugar())

	guarded := 0
	h.SetRelay(NewRedisRelay(zap.NewNop().Sugar(), publisher, "gateway"), func(fn func()) {
		guarded++
		fn()
	})

	user := models.NewUser(&models.UserData{ID: 42})
	user.Username = "alice"
	Emit(h, Ready, user)
	Emit(h, Error, errors.New("lost connection"))

	if guarded != 2 {
		t.Fatalf("expected encoding to run under the guard twice, ran %d times", guarded)
	}
	h.Close()
	if len(publisher.messages) != 2 || publisher.channels[0] != "gateway" {
		t.Fatalf("unexpected publishes: %v", publisher.channels)
	}

	envelope, err := DecodeEnvelope(publisher.messages[0])
	if err != nil {
		t.Fatal(err)
	}
	if envelope.Signal != "ready" || envelope.ID == "" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	var relayed models.User
	if err := msgpack.Unmarshal(envelope.Payload, &relayed); err != nil {
		t.Fatal(err)
	}
	if relayed.ID != 42 || relayed.Username != "alice" {
		t.Fatalf("unexpected relayed user: %+v", relayed)
	}

	envelope, err = DecodeEnvelope(publisher.messages[1])
	if err != nil {
		t.Fatal(err)
	}
	var text string
	if err := msgpack.Unmarshal(envelope.Payload, &text); err != nil {
		t.Fatal(err)
	}
	if text != "lost connection" {
		t.Fatalf("expected error text, got %q", text)
	}
}

func TestRelayFailureIsNotFatal(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("redis down")}
	h := New(zap.NewNop().Sugar())
	h.SetRelay(NewRedisRelay(zap.NewNop().Sugar(), publisher, "gateway"), nil)

	delivered := false
	On(h, InviteDelete, func(*models.InviteDeleteData) {
		delivered = true
	})
	Emit(h, InviteDelete, &models.InviteDeleteData{Code: "abc"})
	h.Close()

	if !delivered || len(publisher.messages) != 1 {
		t.Fatal("local delivery must not depend on the relay")
	}
}

// stalledRelay blocks every publish until released.
type stalledRelay struct {
	release chan struct{}

	mutex     sync.Mutex
	published int
}

func (r *stalledRelay) Publish(ctx context.Context, signal string, payload []byte) error {
	select {
	case <-r.release:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.published++
	return nil
}

func TestStalledRelayDoesNotBlockEmit(t *testing.T) {
	relay := &stalledRelay{release: make(chan struct{})}
	h := New(zap.NewNop().Sugar())
	h.SetRelay(relay, nil)

	delivered := 0
	On(h, ServerMemberRemove, func(snowflake.ID) { delivered++ })

	total := relayQueueSize * 2
	emitted := make(chan struct{})
	go func() {
		defer close(emitted)
		for i := 0; i < total; i++ {
			Emit(h, ServerMemberRemove, snowflake.ID(i+1))
		}
	}()

	select {
	case <-emitted:
	case <-time.After(2 * time.Second):
		t.Fatal("emitting waited on the relay")
	}
	if delivered != total {
		t.Fatalf("expected %d local deliveries, got %d", total, delivered)
	}

	close(relay.release)
	h.Close()

	// the queue holds relayQueueSize signals plus the one being published
	if relay.published == 0 || relay.published > relayQueueSize+1 {
		t.Fatalf("expected the overflow to be dropped, published %d of %d", relay.published, total)
	}

	Emit(h, ServerMemberRemove, snowflake.ID(1))
	if relay.published > relayQueueSize+1 {
		t.Fatal("a closed relay must not publish")
	}
}

func TestTailDecodesEnvelopes(t *testing.T) {
	publisher := &fakePublisher{}
	relay := NewRedisRelay(zap.NewNop().Sugar(), publisher, "gateway")
	if err := relay.Publish(context.Background(), "serverCreate", []byte{0xc0}); err != nil {
		t.Fatal(err)
	}

	messages := make(chan *redis.Message, 2)
	messages <- &redis.Message{Channel: "gateway", Payload: "not msgpack"}
	messages <- &redis.Message{Channel: "gateway", Payload: string(publisher.messages[0])}
	close(messages)

	var received []Envelope
	tailMessages(context.Background(), zap.NewNop().Sugar(), messages, func(envelope Envelope) {
		received = append(received, envelope)
	})

	if len(received) != 1 || received[0].Signal != "serverCreate" {
		t.Fatalf("expected the one valid envelope, got %+v", received)
	}
}
