package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrRateLimited     = errors.New("too many requests")
	ErrBroadcastFailed = errors.New("broadcast failed")
	ErrStorage         = errors.New("storage error")
	ErrInvalidRequest  = errors.New("invalid request")
	// ErrSequenceConflict é interno: dispara o único resync+retry e nunca chega ao cliente.
	ErrSequenceConflict = errors.New("sequence conflict")
)

// Failure carrega a categoria (um dos Err* acima), o código de motivo do nó
// quando existir e a causa original.
type Failure struct {
	Kind   error
	Reason string
	Err    error
	// RetryAfter só é usado com ErrRateLimited.
	RetryAfter time.Duration
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Kind.Error())
	if f.Reason != "" {
		b.WriteString(" (")
		b.WriteString(f.Reason)
		b.WriteString(")")
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

func Fail(kind error, reason string, err error) *Failure {
	return &Failure{Kind: kind, Reason: reason, Err: err}
}
