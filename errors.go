package serialline

import "errors"

// Error categories returned by this package. Callers classify failures with
// errors.Is; every returned error wraps exactly one of these sentinels.
var (
	// ErrConfiguration marks an invalid enumerated value, clear option or
	// parameter tag. Always the caller's fault, never worth retrying.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrConnection marks a failure to open the underlying device.
	ErrConnection = errors.New("connection failed")

	// ErrTransientIO marks a read or write that failed mid-operation, for
	// example on a broken pipe. The caller may reopen the line and retry
	// once; see WithReconnect.
	ErrTransientIO = errors.New("transient i/o failure")

	// ErrProtocol marks a packed read request whose mode tag is unknown.
	ErrProtocol = errors.New("protocol error")
)
