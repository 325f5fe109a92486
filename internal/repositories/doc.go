// Package repositories implements SQLite persistence for the playlist library and the sync outbox.
//
// Every repository wraps a [shared.DBTX], so the same type runs against a connection pool or inside a
// transaction obtained through WithTx. The [Store] groups them into the explicit store handle the
// rest of the application receives.
//
// Key Implementations:
//   - [PlaylistRepository] : playlists and their remote bindings
//   - [TrackRepository] : insert-or-ignore remote track references
//   - [PlaylistTrackRepository] : membership ordered by fractional sort key
//   - [SyncQueueRepository] : the persisted outbox and its status transitions
//   - [SettingsRepository] : small persisted flags
//   - [OrderMigrationStore] : the legacy position to sort key migration
//
// Timestamps are stored as epoch milliseconds.
package repositories
