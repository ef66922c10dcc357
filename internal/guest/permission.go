package guest

import "github.com/roach88/syncbox/internal/manifest"

// PermissionSet is the complete capability set a session runs under. It is
// derived once per session and immutable afterward.
type PermissionSet struct {
	CanReadPayload  bool `json:"can_read_payload"`
	CanReadContext  bool `json:"can_read_context"`
	CanWritePayload bool `json:"can_write_payload"`
	CanWriteContext bool `json:"can_write_context"`
	CanExecuteWasm  bool `json:"can_execute_wasm"`

	AllowedHosts []string `json:"allowed_hosts"`
	AllowedEnv   []string `json:"allowed_env"`
}

// Derive computes the capability set for a role against a manifest. Reads
// and module execution are open to every role; writes require both the
// archive's ownership.write_allowed flag and the owner role. The host and
// env allowlists pass through verbatim so enforcement sees exactly what the
// manifest declared.
func Derive(m *manifest.Manifest, role Role) PermissionSet {
	write := m.Ownership.WriteAllowed && role == RoleOwner
	return PermissionSet{
		CanReadPayload:  true,
		CanReadContext:  true,
		CanWritePayload: write,
		CanWriteContext: write,
		CanExecuteWasm:  true,
		AllowedHosts:    append([]string(nil), m.Permissions.AllowHosts...),
		AllowedEnv:      append([]string(nil), m.Permissions.AllowEnv...),
	}
}

// Enforce checks an action against the capability set. It runs before every
// dispatch to the sandbox; a denial carries the action name so the caller
// can report exactly what was refused.
func Enforce(p PermissionSet, action Action) error {
	allowed := false
	switch action {
	case ActionReadPayload:
		allowed = p.CanReadPayload
	case ActionReadContext:
		allowed = p.CanReadContext
	case ActionWritePayload, ActionUpdatePayload:
		allowed = p.CanWritePayload
	case ActionWriteContext:
		allowed = p.CanWriteContext
	case ActionExecuteWasm:
		allowed = p.CanExecuteWasm
	default:
		return newError(ErrCodeInvalidRequest, "unknown action %q", action)
	}
	if !allowed {
		return newError(ErrCodePermissionDenied, "action %s denied for current role", action)
	}
	return nil
}
