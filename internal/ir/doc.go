// Package ir provides the shared value types for navstate: state values,
// locations, transition kinds and snapshots.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types in state - use int64 for numbers
//   - JSON tags use snake_case
//   - Persisted forms use canonical JSON (RFC 8785)
package ir
