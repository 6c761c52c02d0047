// Package engine implements the navigation store: a stack of visited
// locations, the index of the current one, and a guarded commit protocol
// for every transition.
//
// TRANSITIONS:
//
//   - Push appends a new entry after the current one and drops everything
//     ahead of it. A push to the URL directly behind or ahead of the
//     current entry is coalesced into Back or Next.
//   - Redirect replaces the current entry. Index and length stay put.
//   - Jump, Back and Next move the index to an entry already on the stack
//     and merge new state into it.
//
// COMMIT PROTOCOL:
//
// A transition method never changes the store. It builds a proposed
// ir.Snapshot, wraps it in a *Transition and hands that to the Notifier.
// Listeners inspect Current and Proposed and call Commit or Veto; the first
// decision wins. Commit runs in two phases:
//
//  1. The Driver side effect (PushState, ReplaceState or Go) runs and must
//     succeed.
//  2. The store swaps its live state under a lock, stamps it with the next
//     Clock value, and calls the SaveFunc outside the lock.
//
// A Save error is returned from Commit; the live state is not rolled back.
//
// With no listeners registered the default Channel commits every
// transition itself.
package engine
