// Package journal defines the store the session table is persisted to and
// ships its concrete implementations.
//
// A Store holds exactly one blob: the latest encoded session table. Reads and
// writes are whole-blob and atomic; there are no partial writes. The session
// map drives the store from background goroutines, so implementations may
// block for as long as the I/O takes, honouring ctx.
//
// Add additional backends (object storage, a replicated log, ...) in
// sub-packages without changing any calling code; only the wiring layer
// decides which implementation to instantiate. The Redis backend lives in
// journal/redis.
package journal
