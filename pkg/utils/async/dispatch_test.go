package async_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/pulsecheck/pkg/utils/async"
)

func TestDispatch(t *testing.T) {
	t.Run("runs handler after caller context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		async.Dispatch(ctx, "test", func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			done <- ctx.Err()
			return nil
		})
		cancel()

		select {
		case err := <-done:
			gt.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
	})

	t.Run("recovers from panic", func(t *testing.T) {
		done := make(chan struct{})
		async.Dispatch(context.Background(), "panic", func(ctx context.Context) error {
			defer close(done)
			panic("unexpected")
		})

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
	})

	t.Run("handles returned error", func(t *testing.T) {
		done := make(chan struct{})
		async.Dispatch(context.Background(), "error", func(ctx context.Context) error {
			defer close(done)
			return goerr.New("failed")
		})
		<-done
	})
}
