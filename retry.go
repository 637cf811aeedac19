package serialline

import "errors"

// WithReconnect runs op against the line and, if it fails with a transient
// i/o error, reopens the line and runs it once more. Configuration and
// protocol errors are returned as-is; retrying those cannot help. If the
// reopen itself fails, its connection error is returned.
func WithReconnect[T any](l *Line, op func() (T, error)) (T, error) {
	out, err := op()
	if err == nil || !errors.Is(err, ErrTransientIO) {
		return out, err
	}
	if rerr := l.Reopen(); rerr != nil {
		return out, rerr
	}
	return op()
}
