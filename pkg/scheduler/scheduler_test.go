package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

type SchedulerTestSuite struct {
	suite.Suite
	scheduler *Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) SetupTest() {
	s.scheduler = NewScheduler(zerolog.Nop())
}

func (s *SchedulerTestSuite) TestRunsImmediatelyAndOnInterval() {
	var runs atomic.Int32
	s.scheduler.AddTask("count", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.scheduler.Start(context.Background())
	s.Eventually(func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.scheduler.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	s.Equal(after, runs.Load(), "no runs after Stop returns")
}

func (s *SchedulerTestSuite) TestErrorsDoNotStopTask() {
	var runs atomic.Int32
	s.scheduler.AddTask("failing", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	})

	s.scheduler.Start(context.Background())
	s.Eventually(func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.scheduler.Stop()
}

func (s *SchedulerTestSuite) TestStartTwiceAndStopTwice() {
	var runs atomic.Int32
	s.scheduler.AddTask("once", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.scheduler.Start(context.Background())
	s.scheduler.Start(context.Background())
	s.Eventually(func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.scheduler.Stop()
	s.scheduler.Stop()
	s.Equal(int32(1), runs.Load())
}

func (s *SchedulerTestSuite) TestParentCancelStopsTasks() {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	s.scheduler.AddTask("blocking", time.Hour, func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})

	s.scheduler.Start(ctx)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		s.Fail("task did not observe cancellation")
	}
	s.scheduler.Stop()
}
