// Package manifest handles JSON encoding of internal/domain.Manifest for
// storage as an S3 object, and the fixed object-key layout every generation
// lives under: latest pointer, snapshot, manifest, and WAL segments.
package manifest
