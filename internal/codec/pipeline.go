package codec

// Version and MinCompatibleVersion let internal/domain.CheckModuleVersions
// guard against a partially upgraded vendor tree changing wire framing
// underneath a running engine.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)

// Pipeline is the configured write-side transform: optional compression
// followed by optional encryption. It is immutable once built.
type Pipeline struct {
	compression   Compression
	encryptionKey string
}

// NewPipeline builds a pipeline from configuration. An empty encryptionKey
// disables the encryption stage.
func NewPipeline(compression Compression, encryptionKey string) Pipeline {
	return Pipeline{compression: compression, encryptionKey: encryptionKey}
}

// Encode applies compress-then-encrypt to plaintext, per configuration.
func (p Pipeline) Encode(plaintext []byte) ([]byte, error) {
	compressed, err := compress(p.compression, plaintext)
	if err != nil {
		return nil, err
	}
	if p.encryptionKey == "" {
		return compressed, nil
	}
	return encrypt(p.encryptionKey, compressed)
}

// Decode inverts Encode by inspecting magic bytes: it strips an encryption
// envelope if present, then strips a compression envelope if present. An
// object with neither magic is returned unchanged. The pipeline's own
// configuration is only consulted for the encryption passphrase; the
// compression algorithm used on write is always recovered from the magic
// bytes, so a reader can decode objects written under a different
// compression setting than its own.
func (p Pipeline) Decode(stored []byte) ([]byte, error) {
	decrypted, err := decryptIfEncrypted(p.encryptionKey, stored)
	if err != nil {
		return nil, err
	}
	return decompressAuto(decrypted)
}
