package claude

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// Invocation describes one backend run. A fresh process is spawned per
// request; resume continuity lives in BackendSessionID, not in the process.
type Invocation struct {
	Model            string
	BackendSessionID string // resume token, empty to start a new backend session
	Stream           bool
	Input            []byte // stream-json document written to stdin
	LegacyPrompt     string // non-empty selects flat-prompt mode, no stdin
}

// Runner spawns the claude CLI.
type Runner struct {
	bin     string
	timeout time.Duration
	log     zerolog.Logger
}

func NewRunner(bin string, timeout time.Duration, log zerolog.Logger) *Runner {
	if bin == "" {
		bin = "claude"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{bin: bin, timeout: timeout, log: log}
}

func (r *Runner) args(inv Invocation) []string {
	args := []string{"--model", inv.Model}
	if inv.BackendSessionID != "" {
		args = append(args, "--resume", inv.BackendSessionID)
	}
	if inv.LegacyPrompt == "" {
		args = append(args,
			"--input-format", "stream-json",
			"--print", "--output-format", "stream-json", "--verbose")
		return args
	}
	if inv.Stream {
		args = append(args, "--print", "--output-format", "stream-json", "--verbose")
	} else {
		args = append(args, "--print", "--output-format", "json")
	}
	return append(args, inv.LegacyPrompt)
}

// Process is a running backend invocation. Stdout is consumed by the event
// interpreter; Wait must be called exactly once.
type Process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	cancel context.CancelFunc
	tctx   context.Context
	budget time.Duration
}

// Start launches the CLI. In blocking mode the invocation is bounded by the
// runner's wall-clock budget; in streaming mode only the caller's context
// (client disconnect) terminates the process.
func (r *Runner) Start(ctx context.Context, inv Invocation) (*Process, error) {
	p := &Process{budget: r.timeout}
	runCtx := ctx
	if !inv.Stream {
		runCtx, p.cancel = context.WithTimeout(ctx, r.timeout)
		p.tctx = runCtx
	}

	args := r.args(inv)
	cmd := exec.CommandContext(runCtx, r.bin, args...)
	cmd.Stderr = &p.stderr
	cmd.WaitDelay = 5 * time.Second
	if inv.LegacyPrompt == "" {
		cmd.Stdin = bytes.NewReader(inv.Input)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		if p.cancel != nil {
			p.cancel()
		}
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	p.cmd = cmd
	p.stdout = stdout

	r.log.Debug().Str("bin", r.bin).Strs("args", args).Msg("spawning claude")

	if err := cmd.Start(); err != nil {
		if p.cancel != nil {
			p.cancel()
		}
		return nil, fmt.Errorf("starting %s: %w", r.bin, err)
	}
	return p, nil
}

// Stdout is the line-delimited JSON event stream.
func (p *Process) Stdout() io.Reader { return p.stdout }

// Wait reaps the process. The stdout pipe is closed first so a child still
// writing after we stopped reading cannot block forever.
func (p *Process) Wait() error {
	_ = p.stdout.Close()
	err := p.cmd.Wait()
	timedOut := p.tctx != nil && errors.Is(p.tctx.Err(), context.DeadlineExceeded)
	if p.cancel != nil {
		p.cancel()
	}
	if err == nil {
		return nil
	}
	if timedOut {
		return &TimeoutError{Budget: p.budget}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ProcessError{ExitCode: exitErr.ExitCode(), Stderr: p.stderr.String()}
	}
	return err
}
