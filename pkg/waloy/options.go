package waloy

import "github.com/waloy/waloy/internal/ports"

// Logger is the logging interface an embedder can implement to receive
// waloy's structured log output. Re-exported so callers never need to
// import an internal package.
type Logger = ports.Logger

// Field is a structured log key-value pair.
type Field = ports.Field

// ObjectStore is the storage interface Waloy replicates against.
// Implementations backing github.com/aws/aws-sdk-go are built in and
// wired automatically from Config.S3; WithObjectStore overrides that for
// testing or a non-default S3-compatible client.
type ObjectStore = ports.ObjectStore

// Option configures optional behavior at Open.
type Option func(*options)

type options struct {
	logger ports.Logger
	store  ports.ObjectStore
}

func defaultOptions() options {
	return options{logger: ports.NoopLogger{}}
}

// WithLogger sets a custom logger. If not provided, log output is
// discarded.
func WithLogger(logger Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObjectStore overrides the S3-backed object store Open would
// otherwise construct from Config.S3, for tests and alternative backends
// satisfying the same interface.
func WithObjectStore(store ObjectStore) Option {
	return func(o *options) { o.store = store }
}
