// Package capi exposes the boosting engine through a C-API-shaped boundary
// restricted to 32-bit integers, for host environments that legalize 64-bit
// integers into register pairs (WASM, JS bridges).
//
// Boundary contract:
//
//   - Every row count, column count, iteration count and type tag crossing
//     the boundary is an int32. Widening to the engine's native int happens
//     immediately before the forward call; result lengths are narrowed back
//     to int32 immediately before returning. Narrowing is overflow-checked:
//     a length that does not fit in an int32 fails the call instead of
//     silently wrapping.
//   - Feature matrices and label-like fields are float32, row-major.
//     Prediction output is float64. Serialized models are NUL-terminated
//     text.
//   - Every operation returns an int32 status code: 0 on success, -1 on
//     failure. Detail for the most recent failure is available from
//     GetLastError.
//   - Datasets and boosters are referenced by opaque int32 handle tokens.
//     Handles are never reused after release; any call on a released
//     handle, including a second release, fails with an "invalid handle"
//     error.
//
// The last-error message is a single package-level slot: concurrent failing
// calls overwrite each other, so callers that share the package across
// goroutines must serialize error retrieval themselves. The package adds no
// other shared state and performs no automatic cleanup; every handle
// created must be explicitly released.
package capi
