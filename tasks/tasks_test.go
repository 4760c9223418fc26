package tasks

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-hostbridge/events"
	"github.com/joeycumines/go-hostbridge/hostloop"
	"github.com/joeycumines/go-hostbridge/workpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *hostloop.Loop {
	t.Helper()
	loop, err := hostloop.New()
	require.NoError(t, err)
	go func() { _ = loop.Run(context.Background()) }()
	t.Cleanup(func() { _ = loop.Shutdown(context.Background()) })
	return loop
}

func await(t *testing.T, p hostloop.Promise) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := p.Await(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "promise did not settle")
	return err
}

// countingDispatcher wraps a loop, counting submissions.
type countingDispatcher struct {
	*hostloop.Loop
	n atomic.Int32
}

func (x *countingDispatcher) Submit(task hostloop.Task) error {
	x.n.Add(1)
	return x.Loop.Submit(task)
}

type runner func(ctx context.Context, d hostloop.Dispatcher, count int, cfg Config, opts ...Option) hostloop.Promise

func runners(t *testing.T) map[string]runner {
	pool := workpool.New(2)
	t.Cleanup(func() { _ = pool.Close(context.Background()) })
	return map[string]runner{
		`native`: RunNative,
		`pooled`: func(ctx context.Context, d hostloop.Dispatcher, count int, cfg Config, opts ...Option) hostloop.Promise {
			return RunPooled(ctx, d, pool, count, cfg, opts...)
		},
	}
}

func TestRun_HostStaysResponsive(t *testing.T) {
	for name, run := range runners(t) {
		t.Run(name, func(t *testing.T) {
			loop := startLoop(t)
			d := &countingDispatcher{Loop: loop}
			const step = 50 * time.Millisecond

			start := time.Now()
			p := run(context.Background(), d, 2, Config{StepDelay: step})

			var settledOnHost atomic.Bool
			p.Then(func(hostloop.Result, error) { settledOnHost.Store(loop.IsLoopThread()) })

			// the host goroutine processes other dispatches while the work runs
			v, err := hostloop.Send(d, func() (string, error) { return `pong`, nil }).Join()
			require.NoError(t, err)
			assert.Equal(t, `pong`, v)
			assert.Equal(t, hostloop.Pending, p.State())

			require.NoError(t, await(t, p))
			assert.GreaterOrEqual(t, time.Since(start), 2*step)
			assert.True(t, settledOnHost.Load(), "promise settled off the host goroutine")

			// one completion dispatch, one ping
			assert.Equal(t, int32(2), d.n.Load())
		})
	}
}

func TestRun_Reporter(t *testing.T) {
	for name, run := range runners(t) {
		t.Run(name, func(t *testing.T) {
			loop := startLoop(t)
			var (
				mu       sync.Mutex
				messages []string
			)
			p := run(context.Background(), loop, 3, Config{}, WithReporter(func(e events.Event) {
				mu.Lock()
				defer mu.Unlock()
				messages = append(messages, e.(events.Log).Message)
			}))
			require.NoError(t, await(t, p))

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []string{
				`running in thread i: 0`,
				`running in thread i: 1`,
				`running in thread i: 2`,
			}, messages)
		})
	}
}

func TestRun_ProgressDeliveredBeforeCompletion(t *testing.T) {
	for name, run := range runners(t) {
		t.Run(name, func(t *testing.T) {
			d := &countingDispatcher{Loop: startLoop(t)}

			var order []string // only touched on the host goroutine
			agg := events.NewAggregator(d, hostloop.CallbackFunc(func(args ...any) (any, error) {
				order = append(order, args[0].(string))
				return nil, nil
			}))

			// hold the host goroutine, so the progress dispatch and the
			// completion dispatch are queued together
			block := make(chan struct{})
			require.NoError(t, d.Submit(func() { <-block }))
			d.n.Store(0)

			p := run(context.Background(), d, 1, Config{}, WithReporter(func(e events.Event) {
				assert.NoError(t, agg.Publish(e))
			}))
			p.Then(func(_ hostloop.Result, err error) {
				assert.NoError(t, err)
				order = append(order, `resolved`)
			})
			require.Eventually(t, func() bool { return d.n.Load() == 2 }, 5*time.Second, time.Millisecond)
			close(block)

			require.NoError(t, await(t, p))
			v, err := hostloop.Send(d, func() ([]string, error) { return append([]string(nil), order...), nil }).Join()
			require.NoError(t, err)
			assert.Equal(t, []string{
				events.MustMarshal(events.Log{Message: `running in thread i: 0`}),
				`resolved`,
			}, v)
		})
	}
}

func TestRun_PanicRejects(t *testing.T) {
	for name, run := range runners(t) {
		t.Run(name, func(t *testing.T) {
			p := run(context.Background(), startLoop(t), 2, Config{}, WithReporter(func(events.Event) {
				panic(`reporter failed`)
			}))
			var pe hostloop.PanicError
			require.ErrorAs(t, await(t, p), &pe)
			assert.Equal(t, `reporter failed`, pe.Value)
		})
	}
}

func TestRun_GoexitRejects(t *testing.T) {
	for name, run := range runners(t) {
		t.Run(name, func(t *testing.T) {
			p := run(context.Background(), startLoop(t), 1, Config{}, WithReporter(func(events.Event) {
				runtime.Goexit()
			}))
			assert.ErrorIs(t, await(t, p), hostloop.ErrGoexit)
		})
	}
}

func TestRun_ZeroCount(t *testing.T) {
	for name, run := range runners(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, await(t, run(context.Background(), startLoop(t), 0, DefaultConfig())))
		})
	}
}

func TestRun_Cancel(t *testing.T) {
	for name, run := range runners(t) {
		t.Run(name, func(t *testing.T) {
			loop := startLoop(t)
			ctx, cancel := context.WithCancel(context.Background())
			p := run(ctx, loop, 5, Config{StepDelay: time.Hour})
			time.Sleep(10 * time.Millisecond)
			cancel()
			assert.ErrorIs(t, await(t, p), context.Canceled)
		})
	}
}

func TestRunPooled_Errors(t *testing.T) {
	loop := startLoop(t)

	pool := workpool.New(1)
	require.NoError(t, pool.Close(context.Background()))
	assert.ErrorIs(t, await(t, RunPooled(context.Background(), loop, pool, 1, Config{})), workpool.ErrPoolClosed)

	assert.Error(t, await(t, RunPooled(context.Background(), loop, nil, 1, Config{})))
	assert.ErrorIs(t, await(t, RunPooled(context.Background(), nil, workpool.New(1), 1, Config{})), hostloop.ErrNilDispatcher)
	assert.ErrorIs(t, await(t, RunNative(context.Background(), nil, 1, Config{})), hostloop.ErrNilDispatcher)
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, Config{StepDelay: time.Second}, DefaultConfig())
}
