package guest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolVersion identifies the guest wire protocol. Requests and
// responses carrying any other version are rejected as ProtocolError.
const ProtocolVersion = "guest.v1"

// Action names a protocol operation a guest exchange can perform.
type Action string

const (
	ActionReadPayload   Action = "read_payload"
	ActionReadContext   Action = "read_context"
	ActionWritePayload  Action = "write_payload"
	ActionWriteContext  Action = "write_context"
	ActionExecuteWasm   Action = "execute_wasm"
	ActionUpdatePayload Action = "update_payload"
)

// ErrorCode classifies a guest-visible failure.
type ErrorCode string

const (
	ErrCodePermissionDenied ErrorCode = "PermissionDenied"
	ErrCodeInvalidRequest   ErrorCode = "InvalidRequest"
	ErrCodeExecutionFailed  ErrorCode = "ExecutionFailed"
	ErrCodeHostUnavailable  ErrorCode = "HostUnavailable"
	ErrCodeProtocolError    ErrorCode = "ProtocolError"
	ErrCodeIO               ErrorCode = "IoError"

	// ErrCodeTimedOut annotates a session that exhausted policy.timeout.
	// It is session state, never a wire code.
	ErrCodeTimedOut ErrorCode = "TimedOut"
)

// Error is the failure type returned by session and protocol operations.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("guest: %s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HasCode reports whether err is a guest Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	return ge.Code == code
}

// Mode distinguishes how the archive is being hosted.
type Mode string

const (
	ModeWidget   Mode = "widget"
	ModeHeadless Mode = "headless"
)

// Role is the identity a session runs under.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleOwner    Role = "owner"
)

// Context is the host-supplied execution context serialized into every
// request so the guest can see what it is allowed to do.
type Context struct {
	Mode        Mode          `json:"mode"`
	Role        Role          `json:"role"`
	Permissions PermissionSet `json:"permissions"`
	LogicalPath string        `json:"logical_path,omitempty"`
	HostApp     string        `json:"host_app,omitempty"`
}

// Input carries the action-specific body of a request. Payload bytes
// travel base64-encoded; Context holds the archive's context.json document
// when one is present.
type Input struct {
	Payload string          `json:"payload,omitempty"`
	Context json.RawMessage `json:"context,omitempty"`
}

// Request is one host-to-guest message.
type Request struct {
	Version   string  `json:"version"`
	RequestID string  `json:"request_id"`
	Action    Action  `json:"action"`
	Context   Context `json:"context"`
	Input     Input   `json:"input,omitempty"`
}

// ResponseError is the guest's structured failure report.
type ResponseError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ResponseResult is the success body of a guest response. A guest that
// produced a new payload returns it base64-encoded in UpdatePayload; any
// auxiliary output rides along in Data.
type ResponseResult struct {
	UpdatePayload string          `json:"update_payload,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// Response is one guest-to-host message. RequestID must echo the request
// it answers.
type Response struct {
	Version   string          `json:"version"`
	RequestID string          `json:"request_id"`
	OK        bool            `json:"ok"`
	Result    *ResponseResult `json:"result,omitempty"`
	Error     *ResponseError  `json:"error,omitempty"`
}

// EncodePayload encodes raw payload bytes for transport.
func EncodePayload(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodePayload reverses EncodePayload.
func DecodePayload(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, newError(ErrCodeProtocolError, "decode payload: %v", err)
	}
	return data, nil
}

// validate checks the response envelope against the request it should
// answer. Body-level failures (ok=false) are legitimate responses and pass.
func (r *Response) validate(req *Request) error {
	if r.Version != ProtocolVersion {
		return newError(ErrCodeProtocolError, "unsupported protocol version %q", r.Version)
	}
	if r.RequestID != req.RequestID {
		return newError(ErrCodeProtocolError, "request id mismatch: sent %s, got %s", req.RequestID, r.RequestID)
	}
	if r.OK && r.Result == nil {
		return newError(ErrCodeProtocolError, "ok response without result")
	}
	if !r.OK && r.Error == nil {
		return newError(ErrCodeProtocolError, "error response without error body")
	}
	return nil
}
