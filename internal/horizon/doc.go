// Package horizon provides the shared primitives every simulation component
// is built on:
//
//   - [TimeBase]: immutable, uniformly spaced discrete time horizon
//   - [Cursor]: strict increasing-index guard for per-step operations
//   - domain errors ([ErrConfig], [ErrSequence], ...) and [StepError]
//
// All components of one simulation share a single TimeBase and are mutated
// exactly once per index, in increasing order.
package horizon
