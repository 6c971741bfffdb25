package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/qrmenu/utils"
)

type fakeTables struct {
	maxAge time.Duration
	err    error
	calls  int
}

func (f *fakeTables) CloseStaleSessions(_ context.Context, maxAge time.Duration, _ time.Time) (int, error) {
	f.calls++
	f.maxAge = maxAge
	return 2, f.err
}

type fakeSubscriptions struct {
	calls int
}

func (f *fakeSubscriptions) MarkLapsed(context.Context, time.Time) (int64, error) {
	f.calls++
	return 1, nil
}

func TestSchedulerRegistersJobs(t *testing.T) {
	utils.InitLogger()
	s, err := NewScheduler(&fakeTables{}, &fakeSubscriptions{}, time.Hour)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	assert.ElementsMatch(t, []string{"close-stale-sessions", "expire-subscriptions"}, s.JobNames())
}

func TestJobsDelegateToServices(t *testing.T) {
	utils.InitLogger()
	tables := &fakeTables{}
	subs := &fakeSubscriptions{}
	s, err := NewScheduler(tables, subs, 12*time.Hour)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	require.NoError(t, s.CloseStaleSessions(context.Background()))
	assert.Equal(t, 1, tables.calls)
	assert.Equal(t, 12*time.Hour, tables.maxAge)

	require.NoError(t, s.ExpireSubscriptions(context.Background()))
	assert.Equal(t, 1, subs.calls)

	tables.err = errors.New("db down")
	assert.Error(t, s.CloseStaleSessions(context.Background()))
}
