package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/waloy/waloy/internal/domain"
)

// Encode serializes a manifest for storage. Field order is not significant;
// consumers parse by name.
func Encode(m domain.Manifest) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return data, nil
}

// Decode parses a manifest document. Unknown fields are ignored so a newer
// writer can add fields without breaking an older reader.
func Decode(data []byte) (domain.Manifest, error) {
	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Manifest{}, &domain.CorruptionError{What: "manifest json", Err: err}
	}
	return m, nil
}
