package eventbus

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

const (
	queueSize      = 256
	publishTimeout = 2 * time.Second
	dialTimeout    = 5 * time.Second
)

// Publisher is the subset of the Redis client the bus uses
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Recorder receives publish outcomes
type Recorder interface {
	RecordPublish(status string)
}

// Bus forwards instance list events to a Redis channel.
// Events are queued by the list observer and published from a single worker
// goroutine, so a slow Redis never blocks list mutations.
type Bus struct {
	client   Publisher
	channel  string
	source   string
	logger   *zap.Logger
	recorder Recorder

	queue chan types.EventMessage
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// Dial connects to the Redis server at url and returns a running bus
func Dial(ctx context.Context, url, channel string, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return New(client, channel, logger), nil
}

// New starts a bus publishing through client
func New(client Publisher, channel string, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	source, _ := os.Hostname()

	b := &Bus{
		client:  client,
		channel: channel,
		source:  source,
		logger:  logger,
		queue:   make(chan types.EventMessage, queueSize),
		stop:    make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// WithRecorder adds publish metrics
func (b *Bus) WithRecorder(recorder Recorder) *Bus {
	b.recorder = recorder
	return b
}

// Channel returns the Redis channel events are published to
func (b *Bus) Channel() string {
	return b.channel
}

// Attach subscribes the bus to list events
func (b *Bus) Attach(list *instance.List) (detach func()) {
	return list.Subscribe(func(event instance.Event) {
		b.Enqueue(event.Message())
	})
}

// Enqueue queues a message without blocking. Messages are dropped when the
// queue is full or the bus is closed.
func (b *Bus) Enqueue(msg types.EventMessage) bool {
	msg.Source = b.source

	select {
	case <-b.stop:
		return false
	default:
	}

	select {
	case b.queue <- msg:
		return true
	default:
		b.logger.Warn("Event bus queue full, dropping event",
			zap.String("type", msg.Type),
			zap.Int("index", msg.Index))
		b.record("dropped")
		return false
	}
}

// Close stops the worker after flushing queued events and closes the client
func (b *Bus) Close() error {
	var err error
	b.once.Do(func() {
		close(b.stop)
		b.wg.Wait()
		err = b.client.Close()
	})
	return err
}

func (b *Bus) run() {
	defer b.wg.Done()
	for {
		select {
		case msg := <-b.queue:
			b.publish(msg)
		case <-b.stop:
			for {
				select {
				case msg := <-b.queue:
					b.publish(msg)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) publish(msg types.EventMessage) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		b.logger.Error("Failed to encode event", zap.Error(err))
		b.record("error")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Warn("Failed to publish event",
			zap.String("channel", b.channel),
			zap.String("type", msg.Type),
			zap.Error(err))
		b.record("error")
		return
	}
	b.record("success")
}

func (b *Bus) record(status string) {
	if b.recorder != nil {
		b.recorder.RecordPublish(status)
	}
}
