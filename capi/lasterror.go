package capi

import "sync"

var (
	lastErrorMu sync.Mutex
	lastError   string
)

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

// GetLastError returns the diagnostic message of the most recent failing
// call. The message stays valid until the next failing call; there is a
// single slot shared by all callers.
func GetLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastError
}
