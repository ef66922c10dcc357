// Package guest sandboxes and drives the execution of a .sync archive's
// update module.
//
// The guest protocol (version guest.v1) is a single request/response
// exchange in JSON. The host builds a GuestRequest carrying the payload and
// context, dispatches it through a Runner into the sandbox, and waits up to
// the manifest's policy.timeout for a GuestResponse.
//
// A Session is the bounded execution context for one invocation. It is a
// state machine:
//
//	Created -> PermissionsBound -> Executing -> Completed | Failed | TimedOut
//
// The permission set is derived once from (manifest, role) when the role is
// bound and never mutated afterward. Enforcement runs before every protocol
// action dispatched to the sandbox, not only at session start.
//
// The sandbox boundary is the Runner port: a single capability-checked call
// bounded by the session timeout, so the subprocess backend can be swapped
// for a test double without touching session logic.
package guest
