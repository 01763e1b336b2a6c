package manifest

import (
	"context"
	"fmt"
	"strings"

	"github.com/waloy/waloy/internal/domain"
	"github.com/waloy/waloy/internal/ports"
)

// ListGenerationIDs discovers every generation id under prefix by listing
// manifest.json objects, matching
// _examples/original_source/src/manager.rs's approach of deriving
// generation identity from key structure rather than a separate index
// object. Used by both the engine's retention/compaction and the restore
// planner's point-in-time search, so both walk the same set of
// generations the same way.
func ListGenerationIDs(ctx context.Context, store ports.ObjectStore, prefix string) ([]string, error) {
	items, err := store.List(ctx, prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("manifest: list generations: %w", err)
	}

	const suffix = "/manifest.json"
	seen := make(map[string]bool)
	var ids []string
	for _, item := range items {
		if !strings.HasSuffix(item.Key, suffix) {
			continue
		}
		rest := strings.TrimPrefix(item.Key, prefix+"/")
		rest = strings.TrimSuffix(rest, suffix)
		if rest == "" || seen[rest] {
			continue
		}
		seen[rest] = true
		ids = append(ids, rest)
	}
	return ids, nil
}

// Read fetches and decodes one generation's manifest.
func Read(ctx context.Context, store ports.ObjectStore, prefix, generationID string) (domain.Manifest, error) {
	data, err := store.Get(ctx, ManifestKey(prefix, generationID))
	if err != nil {
		return domain.Manifest{}, err
	}
	return Decode(data)
}

// ReadLatest resolves the {prefix}/latest pointer to the current
// generation id.
func ReadLatest(ctx context.Context, store ports.ObjectStore, prefix string) (string, error) {
	data, err := store.Get(ctx, LatestKey(prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNoLatest, err)
	}
	return string(data), nil
}
