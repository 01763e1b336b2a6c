// Package objectstore implements ports.ObjectStore against an
// S3-compatible bucket. When a custom endpoint is configured it forces
// path-style addressing, so it works equally against real AWS S3 and
// self-hosted endpoints (MinIO, Ceph RGW) used in integration tests.
package objectstore
