package restore

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// CleanupConfig bounds the disk a --staging-dir of abandoned restore runs
// may accumulate, adapted from
// _examples/bft-labs-walship/pkg/walship/cleanup.go's two-watermark
// algorithm: once total size crosses HighWatermark, the oldest runs are
// removed until it falls to LowWatermark. Repointed from "oldest WAL
// segment directories" to "oldest abandoned staging runs," since a
// restore driven repeatedly (an operator probing several --at timestamps)
// otherwise leaves one staging directory per invocation.
type CleanupConfig struct {
	HighWatermark int64
	LowWatermark  int64
}

// DefaultCleanupConfig mirrors the teacher's DefaultCleanupConfig
// watermarks; a staging directory is expected to hold at most a handful
// of in-flight database copies.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		HighWatermark: 2 << 30, // 2 GiB
		LowWatermark:  3 << 29, // 1.5 GiB
	}
}

type stagingRun struct {
	path    string
	size    int64
	modTime int64
}

// pruneStaging removes the oldest immediate subdirectories of dir,
// oldest-modified first, until the combined size of what remains is at or
// below cfg.LowWatermark. It is a no-op below cfg.HighWatermark or against
// a directory that does not exist yet.
func pruneStaging(dir string, cfg CleanupConfig) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var runs []stagingRun
	var total int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		size, modTime, err := dirSizeAndModTime(path)
		if err != nil {
			continue
		}
		runs = append(runs, stagingRun{path: path, size: size, modTime: modTime})
		total += size
	}

	if total <= cfg.HighWatermark {
		return nil
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].modTime < runs[j].modTime })

	for _, run := range runs {
		if total <= cfg.LowWatermark {
			break
		}
		if err := os.RemoveAll(run.path); err != nil {
			continue
		}
		total -= run.size
	}
	return nil
}

func dirSizeAndModTime(path string) (int64, int64, error) {
	var size int64
	var newest int64
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !d.IsDir() {
			size += info.Size()
		}
		if t := info.ModTime().UnixMilli(); t > newest {
			newest = t
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return size, newest, nil
}
