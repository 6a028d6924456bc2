package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type WorkerSuite struct {
	suite.Suite
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) TestDrainsEventsToSink() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewInMemoryStore()
	fanout := NewChannelSink(8)
	done := make(chan error, 1)
	go func() {
		done <- NewWorker(store, fanout.Events(), nil).Run(ctx)
	}()

	s.Require().NoError(fanout.Append(ctx, Event{ID: "evt-1", Action: ActionDecision}))
	s.Require().NoError(fanout.Append(ctx, Event{ID: "evt-2", Action: ActionDecision}))

	s.Eventually(func() bool {
		events, err := store.ListRecent(context.Background(), 10)
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
}

func (s *WorkerSuite) TestChannelSinkDropsWhenFull() {
	fanout := NewChannelSink(1)
	ctx := context.Background()

	s.Require().NoError(fanout.Append(ctx, Event{ID: "evt-1"}))
	s.ErrorIs(fanout.Append(ctx, Event{ID: "evt-2"}), ErrBufferFull)
}
