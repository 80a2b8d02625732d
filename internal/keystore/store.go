// Package keystore persists exportable protected values in an external
// secret backend.
//
// Values travel through a Store as the text encoding of
// protected.Exportable (hex for byte arrays). Every backend SDK takes
// its payload as a Go string or byte slice that vitaminc cannot wipe;
// the copies vitaminc itself makes are wiped.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	vcerrors "github.com/systmms/vitaminc/internal/errors"
	"github.com/systmms/vitaminc/internal/metrics"
	"github.com/systmms/vitaminc/pkg/protected"
)

// ErrNotFound is returned by Get when the backend has no value for the
// name.
var ErrNotFound = errors.New("keystore: not found")

// Store is a named secret backend.
type Store interface {
	// Name identifies the backend type, e.g. "aws-ssm".
	Name() string
	// Put stores value under name, replacing any previous value. It
	// consumes value.
	Put(ctx context.Context, name string, value *protected.Protected[[]byte]) error
	// Get returns the current value for name or ErrNotFound.
	Get(ctx context.Context, name string) (*protected.Protected[[]byte], error)
}

// Save encodes e as text and stores it. e is closed.
func Save[T any](ctx context.Context, s Store, name string, e *protected.Exportable[T]) error {
	text, err := e.MarshalText()
	closeErr := e.Close()
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if closeErr != nil {
		clear(text)
		return closeErr
	}
	return s.Put(ctx, name, protected.New(text))
}

// Load fetches name and decodes it into a new exportable value.
func Load[T any](ctx context.Context, s Store, name string) (*protected.Exportable[T], error) {
	raw, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	var out protected.Exportable[T]
	raw.Update(func(b *[]byte) {
		err = out.UnmarshalText(*b)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &out, nil
}

// instrumented bounds each call with a timeout and records metrics.
type instrumented struct {
	Store
	timeout time.Duration
}

// Instrument wraps s so that every call is limited to timeout and
// reported to the keystore metrics.
func Instrument(s Store, timeout time.Duration) Store {
	return &instrumented{Store: s, timeout: timeout}
}

func (i *instrumented) Put(ctx context.Context, name string, value *protected.Protected[[]byte]) (err error) {
	start := time.Now()
	defer func() { metrics.RecordKeystoreOperation(i.Name(), "put", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	if err := i.Store.Put(ctx, name, value); err != nil {
		return vcerrors.BackendError(i.Name(), "put", err)
	}
	return nil
}

// Get retries once when the first failure looks transient. Put consumes
// its value and cannot be retried.
func (i *instrumented) Get(ctx context.Context, name string) (_ *protected.Protected[[]byte], err error) {
	start := time.Now()
	defer func() {
		// A missing value is an answer, not a backend failure.
		if errors.Is(err, ErrNotFound) {
			metrics.RecordKeystoreOperation(i.Name(), "get", start, nil)
			return
		}
		metrics.RecordKeystoreOperation(i.Name(), "get", start, err)
	}()

	value, err := i.get(ctx, name)
	if err != nil && vcerrors.IsRetryable(err) && ctx.Err() == nil {
		value, err = i.get(ctx, name)
	}
	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, ErrNotFound):
		return nil, err
	default:
		return nil, vcerrors.BackendError(i.Name(), "get", err)
	}
}

func (i *instrumented) get(ctx context.Context, name string) (*protected.Protected[[]byte], error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	return i.Store.Get(ctx, name)
}

// bytesOf copies a backend payload into protected memory and wipes the
// response buffer.
func bytesOf(b []byte) *protected.Protected[[]byte] {
	out := protected.New(append([]byte(nil), b...))
	clear(b)
	return out
}

// stringOf copies a backend string into protected memory. The string
// itself belongs to the SDK and is not wiped.
func stringOf(s string) *protected.Protected[[]byte] {
	return protected.New([]byte(s))
}

// unwrapString hands the payload to an SDK that only accepts strings.
func unwrapString(value *protected.Protected[[]byte]) string {
	var s string
	value.Update(func(b *[]byte) { s = string(*b) })
	_ = value.Close()
	return s
}
