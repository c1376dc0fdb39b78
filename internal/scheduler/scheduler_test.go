package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-portal/internal/config"
	"rental-portal/internal/sweep"
)

type blockingSweeper struct {
	mu      sync.Mutex
	calls   []sweep.Config
	release chan struct{}
	started chan struct{}
}

func (b *blockingSweeper) Run(ctx context.Context, cfg sweep.Config) (*sweep.Result, error) {
	b.mu.Lock()
	b.calls = append(b.calls, cfg)
	b.mu.Unlock()
	if b.started != nil {
		close(b.started)
	}
	if b.release != nil {
		<-b.release
	}
	return &sweep.Result{DryRun: cfg.DryRun}, nil
}

func TestParseDailyRunTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"02:00", "0 2 * * *"},
		{"23:45", "45 23 * * *"},
		{"7:05", "5 7 * * *"},
		{"25:00", "0 3 * * *"},
		{"noon", "0 3 * * *"},
		{"", "0 3 * * *"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDailyRunTime(tt.in))
		})
	}
}

func TestFromConfig(t *testing.T) {
	sc := FromConfig(config.SweepConfig{GraceDays: 14, MaxErasures: 10, DryRun: true})
	assert.Equal(t, 14, sc.GraceDays)
	assert.Equal(t, 10, sc.MaxErasures)
	assert.True(t, sc.DryRun)
	assert.Nil(t, sc.Actor)

	sc = FromConfig(config.SweepConfig{ActorID: 3})
	require.NotNil(t, sc.Actor)
	assert.Equal(t, uint(3), *sc.Actor)
}

func TestRunNow_PassesConfig(t *testing.T) {
	sw := &blockingSweeper{}
	s := NewScheduler(sw, config.SweepConfig{GraceDays: 30, DryRun: true}, time.UTC)

	res, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	require.Len(t, sw.calls, 1)
	assert.Equal(t, 30, sw.calls[0].GraceDays)
}

func TestRunNow_RefusesOverlap(t *testing.T) {
	sw := &blockingSweeper{release: make(chan struct{}), started: make(chan struct{})}
	s := NewScheduler(sw, config.SweepConfig{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background())
		done <- err
	}()
	<-sw.started

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(sw.release)
	require.NoError(t, <-done)
}

func TestRun_OverridesConfig(t *testing.T) {
	sw := &blockingSweeper{}
	s := NewScheduler(sw, config.SweepConfig{GraceDays: 30}, nil)

	cfg := s.SweepConfig()
	cfg.DryRun = true
	_, err := s.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, sw.calls, 1)
	assert.True(t, sw.calls[0].DryRun)
	assert.Equal(t, 30, sw.calls[0].GraceDays)
}

func TestStart_Disabled(t *testing.T) {
	s := NewScheduler(&blockingSweeper{}, config.SweepConfig{Enabled: false}, nil)
	require.NoError(t, s.Start())
	assert.False(t, s.isRunning)
	s.Stop()
}

func TestStart_Enabled(t *testing.T) {
	s := NewScheduler(&blockingSweeper{}, config.SweepConfig{Enabled: true, DailyRunTime: "04:30"}, time.UTC)
	require.NoError(t, s.Start())
	assert.True(t, s.isRunning)
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
	assert.False(t, s.isRunning)
}

func TestStop_Concurrent(t *testing.T) {
	s := NewScheduler(&blockingSweeper{}, config.SweepConfig{Enabled: true, DailyRunTime: "04:30"}, time.UTC)
	require.NoError(t, s.Start())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.False(t, s.isRunning)
}
