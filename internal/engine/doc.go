// Package engine implements the delta-chain edit store.
//
// The engine decides, per save, whether a revision is persisted as a
// full compressed snapshot or as a patch against the previous revision,
// reconstructs any revision by replaying its patch chain, verifies
// content integrity against stored digests, and keeps the chain
// structurally consistent under concurrent writers and deletions.
//
// Write path:
//  1. Validate and normalize inputs, compute the content digest and
//     compressed candidates. All CPU-bound work happens here, outside
//     any lock, so the critical section stays I/O-bound and short.
//  2. Acquire the per-note mutex. Operations on the same note queue in
//     arrival order; different notes never block each other.
//  3. Read the current head, run the storage-format decision, and open
//     a transaction that re-validates the head has not advanced since
//     it was read. A changed head aborts the transaction and retries
//     with exponential backoff; exhausted retries surface as a
//     state-consistency fault.
//  4. Commit the new edit record and the updated manifest snapshot in
//     the same transaction.
//
// Read path: reconstruction loads every record in the (note, branch)
// scope into a map, walks previous-edit links backward to the base
// snapshot with explicit cycle detection (iterative, never recursive,
// so adversarial chains cannot overflow the stack), then replays the
// patches forward and optionally verifies the digest of the result.
//
// Ordering uses a store-wide monotonic sequence number assigned under
// the engine's logical clock. Wall-clock timestamps are stored for
// display but never used for head selection; two saves can share a
// millisecond.
package engine
