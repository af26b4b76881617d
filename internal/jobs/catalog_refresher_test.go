package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/marketeye/internal/catalog"
	"github.com/Checker-Finance/marketeye/internal/pipeline"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(context.Context) (*pipeline.Result, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &pipeline.Result{RunID: uuid.New()}, nil
}

func runInBackground(ctx context.Context, r *CatalogRefresher) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()
	return done
}

func TestCatalogRefresher_RunsImmediatelyThenOnTick(t *testing.T) {
	svc := &countingRefresher{}
	r := NewCatalogRefresher(nil, svc, 10*time.Millisecond)

	done := runInBackground(context.Background(), r)
	require.Eventually(t, func() bool { return svc.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	r.Stop()
	r.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestCatalogRefresher_FirstRunIsImmediate(t *testing.T) {
	svc := &countingRefresher{}
	r := NewCatalogRefresher(nil, svc, time.Hour)

	done := runInBackground(context.Background(), r)
	require.Eventually(t, func() bool { return svc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	r.Stop()
	<-done
	assert.Equal(t, int32(1), svc.calls.Load())
}

func TestCatalogRefresher_KeepsGoingAfterFailures(t *testing.T) {
	for _, err := range []error{errors.New("raw dir missing"), catalog.ErrRefreshInProgress} {
		svc := &countingRefresher{err: err}
		ctx, cancel := context.WithCancel(context.Background())
		r := NewCatalogRefresher(nil, svc, 5*time.Millisecond)

		done := runInBackground(ctx, r)
		require.Eventually(t, func() bool { return svc.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

		cancel()
		<-done
	}
}
