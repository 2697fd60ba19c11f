package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/cuongbtq/editor-bot/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedUpdater struct {
	mu      sync.Mutex
	offsets []int64
	batches [][]Update
	errs    []error
}

func (s *scriptedUpdater) GetUpdates(ctx context.Context, offset int64, _ time.Duration) ([]Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offsets = append(s.offsets, offset)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func fastBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 5 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

func TestPoller_AdvancesOffsetAndRetries(t *testing.T) {
	up := &scriptedUpdater{
		errs: []error{nil, errors.New("bad gateway"), nil},
		batches: [][]Update{
			{{UpdateID: 10}, {UpdateID: 11}},
			{{UpdateID: 12}},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var seen []int64

	p := NewPoller(up, time.Second, logger.NewNop().Logger).WithBackOff(fastBackOff())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(_ context.Context, u Update) {
			mu.Lock()
			seen = append(seen, u.UpdateID)
			if len(seen) == 3 {
				cancel()
			}
			mu.Unlock()
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	assert.Equal(t, []int64{10, 11, 12}, seen)
	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, []int64{0, 12, 12}, up.offsets[:3])
}

func TestPoller_StopsOnCancel(t *testing.T) {
	up := &scriptedUpdater{errs: []error{errors.New("down"), errors.New("down"), errors.New("down")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPoller(up, time.Second, logger.NewNop().Logger).Run(ctx, func(context.Context, Update) {})
	assert.NoError(t, err)
}
