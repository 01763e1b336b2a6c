// Package walfile implements ports.WALFile against the on-disk SQLite
// *-wal file: parsing the 32-byte header for salt/page-size discontinuity
// detection, and streaming raw frame bytes from an arbitrary offset to
// end-of-file. It has no opinion about frame contents; bytes beyond the
// header are opaque payload handed to the codec pipeline unexamined.
package walfile
