package guest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner is the sandbox port: one capability-checked dispatch of a request
// into guest execution, bounded by the caller's context deadline.
//
// Implementations must honor ctx cancellation by tearing down the guest;
// they must never block past the deadline.
type Runner interface {
	Run(ctx context.Context, req *Request) (*Response, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, req *Request) (*Response, error)

func (f RunnerFunc) Run(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// baselineEnv is the variable set every guest process receives regardless
// of the manifest's allow_env list.
var baselineEnv = []string{"PATH", "LANG", "LC_ALL", "HOME", "USER"}

// SubprocessRunner executes the guest in a separate host process, speaking
// the protocol over stdin/stdout. Process isolation is the crash barrier: a
// hung or crashed guest cannot corrupt host state, and the context deadline
// kills the process outright.
type SubprocessRunner struct {
	// HostApp is the guest harness binary to spawn.
	HostApp string

	// Args precede the protocol exchange, e.g. a subcommand. The logical
	// path from the request context is appended when present.
	Args []string
}

// Run spawns the guest process with a scrubbed environment, writes the
// request as one JSON document on stdin, and decodes the response from
// stdout.
func (r *SubprocessRunner) Run(ctx context.Context, req *Request) (*Response, error) {
	if r.HostApp == "" {
		return nil, newError(ErrCodeHostUnavailable, "no host application configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, newError(ErrCodeProtocolError, "encode request: %v", err)
	}

	args := append([]string(nil), r.Args...)
	if req.Context.LogicalPath != "" {
		args = append(args, req.Context.LogicalPath)
	}

	cmd := exec.CommandContext(ctx, r.HostApp, args...)
	cmd.Env = guestEnv(req)
	cmd.Stdin = bytes.NewReader(append(body, '\n'))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// The deadline tore the process down; let the session classify it.
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, newError(ErrCodeExecutionFailed, "guest exited with status %d: %s",
				exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, newError(ErrCodeHostUnavailable, "spawn %s: %v", r.HostApp, err)
	}

	var resp Response
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return nil, newError(ErrCodeProtocolError, "decode response: %v", err)
	}
	return &resp, nil
}

// guestEnv builds the scrubbed environment for the guest process: the
// baseline variables, the manifest's allow_env passthrough, and the
// protocol control variables. Nothing else from the host environment
// crosses the boundary.
func guestEnv(req *Request) []string {
	env := make([]string, 0, len(baselineEnv)+len(req.Context.Permissions.AllowedEnv)+6)
	seen := make(map[string]bool)

	pass := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	for _, name := range baselineEnv {
		pass(name)
	}
	for _, name := range req.Context.Permissions.AllowedEnv {
		pass(name)
	}

	env = append(env,
		"GUEST_PROTOCOL="+ProtocolVersion,
		fmt.Sprintf("GUEST_MODE=%s", req.Context.Mode),
		fmt.Sprintf("GUEST_ROLE=%s", req.Context.Role),
		"ALLOW_HOSTS="+strings.Join(req.Context.Permissions.AllowedHosts, ","),
		"ALLOW_ENV="+strings.Join(req.Context.Permissions.AllowedEnv, ","),
	)
	if req.Context.LogicalPath != "" {
		env = append(env, "SYNC_PATH="+req.Context.LogicalPath)
	}
	return env
}
