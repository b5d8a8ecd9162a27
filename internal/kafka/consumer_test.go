package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	in chan kafka.Message

	mu        sync.Mutex
	committed []kafka.Message
	closed    bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{in: make(chan kafka.Message, len(msgs)+1)}
	for _, m := range msgs {
		r.in <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.in:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.Message(nil), r.committed...)
}

func testConsumer(r reader, workers int) *Consumer {
	return &Consumer{r: r, workers: workers, retryBase: time.Millisecond, retryMax: 5 * time.Millisecond}
}

func msg(partition int, offset int64) kafka.Message {
	return kafka.Message{Topic: "t", Partition: partition, Offset: offset}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func run(t *testing.T, c *Consumer, h Handler) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Start returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Start did not return after cancel")
		}
	}
}

func TestFailedMessageIsRetriedBeforeLaterOffsets(t *testing.T) {
	r := newFakeReader(msg(0, 1), msg(0, 2), msg(1, 1))
	c := testConsumer(r, 2)

	var (
		mu       sync.Mutex
		attempts = map[int64]int{}
		handled  []int64
	)
	stop := run(t, c, func(ctx context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		if m.Partition == 0 {
			attempts[m.Offset]++
			if m.Offset == 1 && attempts[1] < 3 {
				return errors.New("smtp: 421 try again later")
			}
			handled = append(handled, m.Offset)
		}
		return nil
	})
	waitFor(t, "three commits", func() bool { return len(r.commits()) == 3 })
	stop()

	var p0 []int64
	for _, m := range r.commits() {
		if m.Partition == 0 {
			p0 = append(p0, m.Offset)
		}
	}
	if len(p0) != 2 || p0[0] != 1 || p0[1] != 2 {
		t.Fatalf("partition 0 commits = %v", p0)
	}
	mu.Lock()
	defer mu.Unlock()
	if attempts[1] != 3 || len(handled) != 2 || handled[0] != 1 {
		t.Fatalf("attempts = %v handled = %v", attempts, handled)
	}
	if !r.closed {
		t.Fatal("reader not closed")
	}
}

func TestFailingPartitionDoesNotStallOthers(t *testing.T) {
	msgs := []kafka.Message{msg(0, 1)}
	for i := int64(1); i <= 20; i++ {
		msgs = append(msgs, msg(1, i))
	}
	r := newFakeReader(msgs...)
	c := testConsumer(r, 2)

	stop := run(t, c, func(ctx context.Context, m kafka.Message) error {
		if m.Partition == 0 {
			return errors.New("smtp down")
		}
		return nil
	})
	waitFor(t, "partition 1 drained", func() bool { return len(r.commits()) == 20 })
	stop()

	for _, m := range r.commits() {
		if m.Partition == 0 {
			t.Fatal("failing message must never be committed")
		}
	}
}
