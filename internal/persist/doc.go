// Package persist stores board snapshots durably and moves them in and out
// of exported files.
//
// A Gateway sits between the engine and a key-value Store. It encodes
// snapshots through the codec, writes them under a fixed key, and reads
// them back:
//
//	store := persist.NewMemoryStore()
//	gw := persist.NewGateway(store, persist.WithTimeout(2*time.Second))
//
//	if err := gw.Save(ctx, snap); err != nil { ... }
//	snap, found, err := gw.Load(ctx)
//
// # Stores
//
// Three stores are provided:
//   - MemoryStore: session storage that lives as long as the process
//   - FileStore: one file per key, replaced atomically by rename
//   - SQLiteStore: a single table in an SQLite database
//
// Every Put either replaces the whole record or leaves the previous one in
// place; readers never observe a half-written value.
//
// # Failures
//
// A missing record is not an error: Load reports an empty board. A record
// that cannot be decoded is deleted and reported as *CorruptStateError,
// since reading it again cannot succeed. I/O that exceeds its budget is
// reported as *TimeoutError.
//
// # Background saving
//
// Autosaver runs saves on its own goroutine so that recording history is
// never blocked by storage. Only the most recent pending snapshot is kept.
package persist
