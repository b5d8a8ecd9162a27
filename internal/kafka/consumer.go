package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"github.com/tecnolua/ClubePharma/internal/logger"
)

// Handler returns nil only when the message was processed and its offset may
// be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// reader is the part of kafka.Reader the consumer drives.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       reader
	workers int

	retryBase time.Duration
	retryMax  time.Duration
}

func NewConsumer(brokers []string, group string, topics []string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, retryBase: 500 * time.Millisecond, retryMax: 30 * time.Second}
}

// Start fetches messages and hands them to the worker pool until ctx ends.
// A partition always lands on the same worker, and a failing message is
// retried until it succeeds, so no offset is committed past a failure.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	wctx, cancel := context.WithCancel(ctx)
	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				c.process(wctx, h, m)
			}
		}(lanes[i])
	}
	defer func() {
		cancel()
		for _, l := range lanes {
			close(l)
		}
		wg.Wait()
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) {
	log := logger.Ctx(ctx).With().
		Str("topic", m.Topic).
		Int("partition", m.Partition).
		Int64("offset", m.Offset).
		Logger()
	mctx := ExtractTrace(ctx, m.Headers)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryBase
	b.MaxInterval = c.retryMax
	b.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error { return h(mctx, m) }, backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("consumer handler failed")
		})
	if err != nil {
		// Only a cancelled ctx ends the retries; the group redelivers later.
		log.Info().Err(err).Msg("message left uncommitted")
		return
	}
	if err := c.r.CommitMessages(ctx, m); err != nil {
		log.Error().Err(err).Msg("commit failed")
	}
}
