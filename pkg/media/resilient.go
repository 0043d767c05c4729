package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"resenhas/pkg/circuitbreaker"
)

// ResilientStore writes to primary through a circuit breaker and falls back
// to a secondary store when primary fails or the breaker is open.
type ResilientStore struct {
	primary  Store
	fallback Store
	breaker  *circuitbreaker.CircuitBreaker
}

func NewResilientStore(primary, fallback Store, breaker *circuitbreaker.CircuitBreaker) *ResilientStore {
	return &ResilientStore{primary: primary, fallback: fallback, breaker: breaker}
}

func (s *ResilientStore) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	// buffered so the fallback can replay the body
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	var ref string
	primaryRan := false
	saveTo := func(st Store) func() error {
		return func() error {
			var err error
			ref, err = st.Save(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
			return err
		}
	}
	primary := func() error {
		primaryRan = true
		return saveTo(s.primary)()
	}

	err = s.breaker.Execute(primary, saveTo(s.fallback))
	if err == nil {
		return ref, nil
	}
	if !primaryRan {
		// breaker open: the error came from the fallback
		return "", err
	}
	slog.Warn("primary media store failed, using fallback", "key", key, "err", err, "breaker", s.breaker.GetState().String())
	if err := saveTo(s.fallback)(); err != nil {
		return "", err
	}
	return ref, nil
}

// Delete asks both stores; each ignores references it does not own. While
// the breaker is open the primary is not called and ErrOpen is returned, so
// the caller can retry later.
func (s *ResilientStore) Delete(ctx context.Context, ref string) error {
	errPrimary := s.breaker.Execute(func() error { return s.primary.Delete(ctx, ref) }, nil)
	errFallback := s.fallback.Delete(ctx, ref)
	return errors.Join(errPrimary, errFallback)
}
