package domain

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the lifecycle services can surface. Callers
// (HTTP handlers, MQ handlers) branch on the kind, never on error strings.
type Kind int

const (
	// KindInvalidInput 调用方错误（4xx），不重试
	KindInvalidInput Kind = iota
	// KindConflict 状态已是目标状态或互斥操作已发生
	KindConflict
	// KindNotFound 资源不存在
	KindNotFound
	// KindWindowClosed 截止时间已过，终态
	KindWindowClosed
	// KindInsufficientFunds 账本侧余额不足
	KindInsufficientFunds
	// KindLedgerRejected 账本拒绝，不重试
	KindLedgerRejected
	// KindLedgerUnavailable 连接/签名失败，可带退避重试
	KindLedgerUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindWindowClosed:
		return "window_closed"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindLedgerRejected:
		return "ledger_rejected"
	case KindLedgerUnavailable:
		return "ledger_unavailable"
	default:
		return "unknown"
	}
}

// Retryable reports whether an operation failing with this kind may be
// retried with the same idempotency key.
func (k Kind) Retryable() bool {
	return k == KindLedgerUnavailable
}

// Error carries a kind plus an optional raw ledger code for diagnostics.
type Error struct {
	Kind    Kind
	Msg     string
	RawCode int
	Err     error
}

func (e *Error) Error() string {
	if e.RawCode != 0 {
		return fmt.Sprintf("%s: %s (ledger code %d)", e.Kind, e.Msg, e.RawCode)
	}
	if e.Err != nil && e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E constructs a domain error.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Ef constructs a domain error with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err. The second return is false for errors
// that never passed through the taxonomy.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
