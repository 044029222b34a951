package conv

import (
	"errors"
	"fmt"
)

// Errors returned by the engine. Process only ever returns the pre-built
// values below so that the real-time path does not allocate on failure.
var (
	ErrInit    = errors.New("conv: engine init failed")
	ErrProcess = errors.New("conv: engine process failed")

	ErrNotReady  = fmt.Errorf("%w: engine not ready", ErrProcess)
	ErrBlockSize = fmt.Errorf("%w: block length does not match engine block size", ErrProcess)
	ErrTransform = fmt.Errorf("%w: transform failed", ErrProcess)
)
