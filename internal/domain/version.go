package domain

import "fmt"

// ModuleVersion names one internal package's version floor check.
type ModuleVersion struct {
	Name       string
	Version    string
	MinVersion string
}

// CheckModuleVersions verifies every listed module's Version is at least its
// MinVersion. Mirrors the teacher's semver-floor guard: each concern package
// (codec, objectstore, manifest, walfile) declares Version/MinCompatibleVersion
// constants and Open calls this once at startup so a partially upgraded
// vendor tree fails fast instead of shipping a wire-incompatible generation.
func CheckModuleVersions(modules ...ModuleVersion) error {
	for _, m := range modules {
		if !versionAtLeast(m.Version, m.MinVersion) {
			return fmt.Errorf("%w: module %s version %s is below minimum compatible version %s",
				ErrInvalidConfig, m.Name, m.Version, m.MinVersion)
		}
	}
	return nil
}

// versionAtLeast compares "major.minor.patch" strings without pulling in a
// semver library — the teacher's own comparison is this simple sscanf.
func versionAtLeast(version, min string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	fmt.Sscanf(min, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
