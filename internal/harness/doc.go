// Package harness runs navigation scenarios against the real engine.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	seed:
//	  basename: app
//	  index: 1
//	  entries:
//	    - path: /a
//	    - path: /b
//	      state: { tab: info }
//	steps:
//	  - op: push
//	    path: /c
//	  - op: back
//	    decision: veto
//	  - op: jump
//	    n: 5
//	    expect_error: out_of_range
//	assertions:
//	  - type: final_state
//	    expect: { index: 1, length: 3, kind: push }
//	  - type: entries
//	    urls: [/a, /b, /c]
//
// Instead of an inline seed, seed_file names a CUE seed relative to the
// scenario file.
//
// # Decisions
//
// Every step that proposes a transition is decided by the scenario's
// listener according to the step's decision:
//
//   - commit (default): commit inside the listener
//   - veto: reject with the step's reason
//   - defer: leave pending; a later settle step decides it
//
// settle takes the oldest deferred transition and applies its own
// decision (commit or veto) to it.
//
// # Assertion Types
//
//   - final_state: index, length, kind, url and seq of the live store
//   - entries: exact URLs and/or keys of the final stack
//   - trace_kinds: kinds of every committed step, in order
//   - location_state: subset match on the current entry's state
//   - host_in_sync: the in-memory host history matches the store
//   - persisted: number of snapshots written to SQLite
//
// # Deterministic Testing
//
// Every run uses a fresh location factory, sequential keys ("key-1",
// "key-2", ...), a MemoryDriver and an in-memory SQLite database, so the
// same scenario always yields the same trace. RunWithGolden compares that
// trace with testdata/golden/<name>.golden.
package harness
