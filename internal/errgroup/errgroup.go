// Package errgroup runs a bounded number of jobs concurrently.
package errgroup

import (
	"context"
	"fmt"
	"sync"
)

type token struct{}

// Group is a set of jobs sharing one context. A Group created by
// WithContext with stopOnError cancels that context on the first failure;
// jobs started afterwards observe the cancellation through their argument.
type Group struct {
	ctx         context.Context
	cancel      context.CancelCauseFunc
	stopOnError bool

	wg  sync.WaitGroup
	sem chan token

	errOnce sync.Once
	err     error
}

func WithContext(ctx context.Context, stopOnError bool) (*Group, context.Context) {
	ctx, cancel := context.WithCancelCause(ctx)
	return &Group{ctx: ctx, cancel: cancel, stopOnError: stopOnError}, ctx
}

// SetLimit bounds the number of running jobs. n <= 0 removes the bound.
func (g *Group) SetLimit(n int) {
	if len(g.sem) != 0 {
		panic(fmt.Errorf("errgroup: modify limit while %v jobs in the group are still active", len(g.sem)))
	}
	if n <= 0 {
		g.sem = nil
		return
	}
	g.sem = make(chan token, n)
}

// Go blocks until a slot is free and then runs f in a new goroutine.
func (g *Group) Go(f func(ctx context.Context) error) {
	if g.sem != nil {
		g.sem <- token{}
	}

	g.wg.Add(1)
	go func() {
		defer g.done()
		if err := f(g.ctx); err != nil {
			g.errOnce.Do(func() {
				g.err = err
				if g.stopOnError {
					g.cancel(err)
				}
			})
		}
	}()
}

func (g *Group) done() {
	if g.sem != nil {
		<-g.sem
	}
	g.wg.Done()
}

// Wait waits for every job and returns the first error.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel(g.err)
	return g.err
}
