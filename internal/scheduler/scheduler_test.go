package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingRefresher struct {
	published atomic.Int32
	merged    atomic.Int32
	err       error
}

func (r *countingRefresher) PublishNZ(context.Context) error {
	r.published.Add(1)
	return r.err
}

func (r *countingRefresher) BuildMerged(context.Context) error {
	r.merged.Add(1)
	return nil
}

func TestSchedulerRunsRefresh(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := &countingRefresher{}
	s := New(20*time.Millisecond, r, nil)
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool {
		return r.merged.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
}

func TestSchedulerDisabled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := &countingRefresher{}
	s := New(0, r, nil)
	require.NoError(t, s.Start())
	s.Stop()

	assert.Zero(t, r.published.Load())
}

func TestRefreshStopsOnPublishError(t *testing.T) {
	r := &countingRefresher{err: errors.New("store down")}
	s := New(0, r, nil)

	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish NZ data")
	assert.Zero(t, r.merged.Load())
}
