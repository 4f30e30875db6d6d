package claude

import (
	"context"
	"errors"
)

// Client runs one backend invocation end to end: spawn, interpret, reap.
type Client struct {
	runner *Runner
}

func NewClient(runner *Runner) *Client {
	return &Client{runner: runner}
}

// Complete runs a blocking invocation and returns the aggregate result. A
// non-zero exit outranks interpretation errors, matching the order in which
// the failures actually happened.
func (c *Client) Complete(ctx context.Context, inv Invocation) (Result, error) {
	inv.Stream = false
	proc, err := c.runner.Start(ctx, inv)
	if err != nil {
		return Result{}, err
	}
	res, ierr := Interpret(proc.Stdout())
	if werr := proc.Wait(); werr != nil {
		return Result{}, werr
	}
	if ierr != nil {
		return Result{}, ierr
	}
	return res, nil
}

// Stream runs a streaming invocation, forwarding deltas through onDelta as
// they arrive. Once the result event has been seen the turn is complete and
// the child's exit status no longer matters (we may have cut it off
// ourselves by closing its pipe).
func (c *Client) Stream(ctx context.Context, inv Invocation, onDelta func(text string) error) (StreamOutcome, error) {
	inv.Stream = true
	proc, err := c.runner.Start(ctx, inv)
	if err != nil {
		return StreamOutcome{}, err
	}
	out, ierr := InterpretStream(proc.Stdout(), onDelta)
	werr := proc.Wait()
	if werr != nil && !out.SawResult {
		// a crashed process explains a missing result better than the
		// ProtocolError the interpreter reported
		var perr *ProtocolError
		if ierr == nil || errors.As(ierr, &perr) {
			return out, werr
		}
	}
	if ierr != nil {
		return out, ierr
	}
	return out, nil
}
