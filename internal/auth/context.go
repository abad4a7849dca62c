// Package auth carries the acting-user identity supplied by the external
// auth collaborator. The services trust this input and perform no
// authentication themselves; the identity is passed explicitly into every
// mutating call instead of living in ambient global state.
package auth

// ActingContext identifies who is performing a mutating operation.
type ActingContext struct {
	UserID  string
	IsAdmin bool
}
