package guest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/roach88/syncbox/internal/archive"
)

// State is where a session sits in its lifecycle. Completed, Failed and
// TimedOut are terminal.
type State uint8

const (
	StateCreated State = iota
	StatePermissionsBound
	StateExecuting
	StateCompleted
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePermissionsBound:
		return "permissions_bound"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Result is what a completed execution produced. UpdatePayload is nil when
// the guest returned no replacement payload; committing a non-nil one is
// the caller's responsibility, never the session's.
type Result struct {
	UpdatePayload []byte
	Data          json.RawMessage
}

// Session drives at most one guest invocation against one archive.
// It is safe for concurrent use; invocations serialize on an internal lock.
type Session struct {
	archive     *archive.Archive
	runner      Runner
	requestIDs  RequestIDGenerator
	mode        Mode
	hostApp     string
	logicalPath string

	mu      sync.Mutex
	state   State
	role    Role
	perms   PermissionSet
	granted bool
	failure ErrorCode
}

// SessionOption configures a Session at construction.
type SessionOption func(*Session)

// WithRunner selects the sandbox backend. Without one, execution fails
// HostUnavailable.
func WithRunner(r Runner) SessionOption {
	return func(s *Session) { s.runner = r }
}

// WithRequestIDs overrides request id generation, for deterministic tests.
func WithRequestIDs(g RequestIDGenerator) SessionOption {
	return func(s *Session) { s.requestIDs = g }
}

// WithMode sets the hosting mode reported to the guest.
func WithMode(m Mode) SessionOption {
	return func(s *Session) { s.mode = m }
}

// WithHostApp names the embedding application in the guest context.
func WithHostApp(app string) SessionOption {
	return func(s *Session) { s.hostApp = app }
}

// WithLogicalPath records where the archive is mounted, for guest context.
func WithLogicalPath(path string) SessionOption {
	return func(s *Session) { s.logicalPath = path }
}

// NewSession wraps an opened archive in a fresh session. Nothing executes
// until a role is bound, execution is granted, and Execute is called.
func NewSession(a *archive.Archive, opts ...SessionOption) *Session {
	s := &Session{
		archive:    a,
		requestIDs: UUIDv7Generator{},
		mode:       ModeHeadless,
		state:      StateCreated,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Role returns the bound role, or the zero Role before binding.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Permissions returns a copy of the derived capability set.
func (s *Session) Permissions() PermissionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.perms
	p.AllowedHosts = append([]string(nil), p.AllowedHosts...)
	p.AllowedEnv = append([]string(nil), p.AllowedEnv...)
	return p
}

// Failure returns the annotation for a Failed or TimedOut session, and the
// empty code otherwise.
func (s *Session) Failure() ErrorCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// BindRole derives the permission set for the role and moves the session to
// PermissionsBound. It can run exactly once, and never after execution has
// started.
func (s *Session) BindRole(role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCreated {
		return newError(ErrCodeInvalidRequest, "role already bound in state %s", s.state)
	}
	if role != RoleConsumer && role != RoleOwner {
		return newError(ErrCodeInvalidRequest, "unknown role %q", role)
	}
	s.role = role
	s.perms = Derive(s.archive.Manifest(), role)
	s.state = StatePermissionsBound
	return nil
}

// GrantModuleExecution arms the session for Execute. It is the explicit
// capability gate for module execution.
func (s *Session) GrantModuleExecution() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePermissionsBound {
		return newError(ErrCodeInvalidRequest, "cannot grant execution in state %s", s.state)
	}
	if err := Enforce(s.perms, ActionExecuteWasm); err != nil {
		return err
	}
	s.granted = true
	return nil
}

// Execute dispatches one ExecuteWasm request into the sandbox and waits up
// to the manifest's policy.timeout for the response. A session executes at
// most once; calling Execute on a session that already ran fails
// InvalidRequest and leaves the state untouched.
func (s *Session) Execute(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePermissionsBound {
		return nil, newError(ErrCodeInvalidRequest, "cannot execute in state %s", s.state)
	}
	if !s.granted {
		return nil, newError(ErrCodeInvalidRequest, "module execution not granted")
	}
	if !s.archive.HasModule() {
		return nil, newError(ErrCodeInvalidRequest, "archive has no update module")
	}

	// Request assembly happens before dispatch; a failure here leaves the
	// session bound, the same as the pre-dispatch cancellation check.
	req, err := s.buildRequest()
	if err != nil {
		return nil, newError(ErrCodeIO, "assemble request: %v", err)
	}
	if err := Enforce(s.perms, req.Action); err != nil {
		return nil, err
	}
	// Cancellation before dispatch has no side effects; the session stays
	// bound and could still execute with a live context.
	if err := ctx.Err(); err != nil {
		return nil, newError(ErrCodeInvalidRequest, "context done before dispatch: %v", err)
	}

	s.state = StateExecuting

	runner := s.runner
	if runner == nil {
		return nil, s.fail(ErrCodeHostUnavailable, newError(ErrCodeHostUnavailable, "no sandbox runner configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.archive.Manifest().Timeout())
	defer cancel()

	resp, err := runner.Run(ctx, req)
	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)):
		s.state = StateTimedOut
		s.failure = ErrCodeTimedOut
		return nil, newError(ErrCodeTimedOut, "sandbox did not respond within policy.timeout")
	case err != nil:
		var ge *Error
		if errors.As(err, &ge) {
			return nil, s.fail(annotate(ge.Code), ge)
		}
		return nil, s.fail(ErrCodeHostUnavailable, newError(ErrCodeHostUnavailable, "sandbox dispatch: %v", err))
	}

	if err := resp.validate(req); err != nil {
		return nil, s.fail(ErrCodeProtocolError, err)
	}
	if !resp.OK {
		err := newError(resp.Error.Code, "guest reported failure: %s", resp.Error.Message)
		return nil, s.fail(annotate(resp.Error.Code), err)
	}

	result := &Result{Data: resp.Result.Data}
	if resp.Result.UpdatePayload != "" {
		payload, err := DecodePayload(resp.Result.UpdatePayload)
		if err != nil {
			return nil, s.fail(ErrCodeProtocolError, err)
		}
		result.UpdatePayload = payload
	}

	s.state = StateCompleted
	return result, nil
}

// fail moves the session to Failed with an annotation and passes the
// triggering error through.
func (s *Session) fail(code ErrorCode, err error) error {
	s.state = StateFailed
	s.failure = code
	return err
}

// annotate narrows an arbitrary failure code to the four codes a Failed
// session may carry.
func annotate(code ErrorCode) ErrorCode {
	switch code {
	case ErrCodeProtocolError, ErrCodeHostUnavailable, ErrCodeIO:
		return code
	default:
		return ErrCodeExecutionFailed
	}
}

// buildRequest assembles the single ExecuteWasm request for this session,
// with a fresh request id and the payload/context buffers the sandbox is
// allowed to see.
func (s *Session) buildRequest() (*Request, error) {
	req := &Request{
		Version:   ProtocolVersion,
		RequestID: s.requestIDs.Generate(),
		Action:    ActionExecuteWasm,
		Context: Context{
			Mode:        s.mode,
			Role:        s.role,
			Permissions: s.perms,
			LogicalPath: s.logicalPath,
			HostApp:     s.hostApp,
		},
	}
	if s.archive.HasPayload() {
		payload, err := s.archive.ReadPayload()
		if err != nil {
			return nil, err
		}
		req.Input.Payload = EncodePayload(payload)
	}
	if s.archive.HasContext() {
		doc, err := s.archive.ReadEntryBytes(archive.EntryContext)
		if err != nil {
			return nil, err
		}
		req.Input.Context = json.RawMessage(doc)
	}
	return req, nil
}
