package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/xoplog/microjson/mjbase"
	"github.com/xoplog/microjson/mjfield"
	"github.com/xoplog/microjson/mjnum"
	"github.com/xoplog/microjson/mjspan"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	genMeta     = &mjspan.Metadata{Name: "event", Target: "mjgen"}
	requestMeta = &mjspan.Metadata{Name: "request", Target: "mjgen"}
	stepMeta    = &mjspan.Metadata{Name: "step", Target: "mjgen"}
)

type workload struct {
	workers int
	events  int
	rate    float64 // events per second, shared by all workers
}

var levelCycle = []mjnum.Level{
	mjnum.InfoLevel,
	mjnum.DebugLevel,
	mjnum.InfoLevel,
	mjnum.WarnLevel,
	mjnum.TraceLevel,
	mjnum.ErrorLevel,
}

// generate runs the workers and returns the first error any of
// them hit. Each worker owns its own stack.
func generate(ctx context.Context, h mjbase.Handler, w workload) error {
	var limiter *rate.Limiter
	if w.rate > 0 {
		burst := int(w.rate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(w.rate), burst)
	}
	var ids uint64
	g, ctx := errgroup.WithContext(ctx)
	for n := 0; n < w.workers; n++ {
		n := n
		g.Go(func() error {
			return worker(ctx, h, limiter, &ids, n, w.events)
		})
	}
	return g.Wait()
}

func worker(ctx context.Context, h mjbase.Handler, limiter *rate.Limiter, ids *uint64, n int, events int) error {
	stack := mjspan.NewStack(fmt.Sprintf("worker-%d", n))
	defer stack.Unwind()

	request := mjspan.ID(atomic.AddUint64(ids, 1))
	h.OnSpanCreate(request, requestMeta,
		mjfield.String("request_id", uuid.NewString()),
		mjfield.Int("worker", n))
	h.OnEnter(stack, request)
	defer func() {
		h.OnExit(stack, request)
		h.OnClose(request)
	}()

	for i := 0; i < events; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return errors.Wrapf(err, "worker %d", n)
			}
		}
		step := mjspan.ID(atomic.AddUint64(ids, 1))
		h.OnSpanCreate(step, stepMeta, mjfield.Int("step", i))
		h.OnEnter(stack, step)
		level := levelCycle[(n+i)%len(levelCycle)]
		var err error
		if h.Enabled(level) {
			err = h.OnEvent(stack, &mjbase.Event{
				Level:    level,
				Metadata: genMeta,
				Fields: mjfield.NewSet(
					mjfield.Message("step complete"),
					mjfield.Int("items", (n+1)*(i+1)),
				),
			})
		}
		h.OnExit(stack, step)
		h.OnClose(step)
		if err != nil {
			return errors.Wrapf(err, "worker %d", n)
		}
	}
	return nil
}
