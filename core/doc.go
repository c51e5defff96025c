// Package core provides the foundational domain types and collaborator
// contracts of the metadata-server session table. It defines:
//
//   - Identities (EntityName, EntityInst, RequestID) and the Version counter type
//   - The session state machine (SessionState and its allowed transitions)
//   - The completed-request Ledger with its trim waiters (idempotency)
//   - The CapList of inode capabilities held by a client, most recently used first
//   - The CapNotifier contract towards the capability subsystem
//
// The building blocks in this package are not synchronized; the owning
// session table (package sessionmap) serializes every access under a single
// table lock.
package core
