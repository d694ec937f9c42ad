package capi

import (
	"math"

	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

// narrowLen converts an engine-side 64-bit length to the boundary's int32.
// Values outside the representable range are rejected rather than wrapped,
// so a caller never sees a truncated length.
func narrowLen(op string, n int64) (int32, error) {
	if n < 0 || n > math.MaxInt32 {
		return 0, scierr.NewOverflowError(op, n, math.MaxInt32)
	}
	return int32(n), nil
}
