package redis

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/hyuricane/redchat/internal/port"
	"github.com/hyuricane/redchat/pkg/logger"
)

const channelQueueSize = 64

// subscriber multiplexes one SUBSCRIBE connection across all channels.
// Messages are dispatched through a dedicated goroutine and buffered queue
// per channel, so one room's volume cannot block delivery to another.
type subscriber struct {
	conn   *redis.Client
	pubsub *redis.PubSub
	log    logger.Logger

	mu       sync.Mutex
	channels map[string]*channelQueue
	nextID   uint64
}

type channelQueue struct {
	handlers map[uint64]port.MessageHandler
	queue    chan string
	done     chan struct{}
}

func newSubscriber(conn *redis.Client, log logger.Logger) *subscriber {
	s := &subscriber{
		conn:     conn,
		pubsub:   conn.Subscribe(context.Background()),
		log:      log,
		channels: make(map[string]*channelQueue),
	}
	go s.dispatch()
	return s
}

// dispatch reads the shared PubSub stream and routes each message to its
// channel's queue. A full queue drops the message instead of stalling the
// stream for every other channel.
func (s *subscriber) dispatch() {
	for msg := range s.pubsub.Channel() {
		s.mu.Lock()
		cq, ok := s.channels[msg.Channel]
		s.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case cq.queue <- msg.Payload:
		default:
			s.log.Warnf("channel %s queue full, dropping message", msg.Channel)
		}
	}
}

func (s *subscriber) run(cq *channelQueue) {
	for {
		select {
		case <-cq.done:
			return
		case payload := <-cq.queue:
			s.mu.Lock()
			handlers := make([]port.MessageHandler, 0, len(cq.handlers))
			for _, h := range cq.handlers {
				handlers = append(handlers, h)
			}
			s.mu.Unlock()
			for _, h := range handlers {
				h(payload)
			}
		}
	}
}

func (s *subscriber) subscribe(ctx context.Context, channel string, handler port.MessageHandler) (port.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cq, ok := s.channels[channel]
	if !ok {
		if err := s.pubsub.Subscribe(ctx, channel); err != nil {
			return nil, err
		}
		cq = &channelQueue{
			handlers: make(map[uint64]port.MessageHandler),
			queue:    make(chan string, channelQueueSize),
			done:     make(chan struct{}),
		}
		s.channels[channel] = cq
		go s.run(cq)
	}

	s.nextID++
	id := s.nextID
	cq.handlers[id] = handler
	return &subscription{sub: s, channel: channel, id: id}, nil
}

func (s *subscriber) unsubscribe(ctx context.Context, channel string, id uint64) error {
	s.mu.Lock()
	cq, ok := s.channels[channel]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(cq.handlers, id)
	last := len(cq.handlers) == 0
	if last {
		delete(s.channels, channel)
		close(cq.done)
	}
	s.mu.Unlock()

	if last {
		return s.pubsub.Unsubscribe(ctx, channel)
	}
	return nil
}

func (s *subscriber) close() error {
	s.mu.Lock()
	for channel, cq := range s.channels {
		close(cq.done)
		delete(s.channels, channel)
	}
	s.mu.Unlock()

	var errs []error
	if err := s.pubsub.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type subscription struct {
	sub     *subscriber
	channel string
	id      uint64
}

func (s *subscription) Unsubscribe(ctx context.Context) error {
	return s.sub.unsubscribe(ctx, s.channel, s.id)
}
