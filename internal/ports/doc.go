// Package ports declares the interfaces the replication engine depends on
// but does not implement: object storage, the on-disk WAL, structured
// logging, and the SQL engine's checkpoint/read-transaction surface.
// Concrete implementations live under internal/objectstore, internal/walfile,
// internal/adapters, and internal/sqlite; the engine calls these
// collaborators only through the interfaces declared here.
package ports
