package pkgman

import (
	"context"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/dshills/workbench/internal/manifest"
)

// Drift describes a plugin's version state.
type Drift struct {
	// Current is the version installed on disk, empty when not installed.
	Current string

	// Wanted is the best version satisfying the declared range. Without a
	// registry client this falls back to the declared range itself.
	Wanted string

	// Latest is the newest published version, empty when unknown.
	Latest string

	// Resolved reports whether Wanted came from registry metadata.
	// Without it Wanted is only the declared range and no drift can be
	// proven.
	Resolved bool
}

// Outdated reports whether an update would change the installed version.
// Only a registry-resolved wanted version counts; an offline fallback to
// the declared range never marks a plugin outdated.
func (d Drift) Outdated() bool {
	return d.Resolved && d.Current != "" && d.Wanted != "" && d.Current != d.Wanted
}

// MetadataClient fetches published package metadata from a registry.
// Fetching itself is outside this system; callers inject an implementation.
type MetadataClient interface {
	// WantedVersion resolves the best version satisfying a range.
	WantedVersion(ctx context.Context, id, versionRange string) (string, error)

	// LatestVersion returns the newest published version.
	LatestVersion(ctx context.Context, id string) (string, error)

	// Invalidate drops any cached metadata for a package.
	Invalidate(id string)
}

// Versions reads version drift for installed plugins.
type Versions struct {
	resolver DirResolver
	client   MetadataClient // may be nil: offline mode
}

// NewVersions creates a version reader. client may be nil.
func NewVersions(client MetadataClient) *Versions {
	return &Versions{client: client}
}

// Read returns the drift for a package declared in the workspace manifest.
func (v *Versions) Read(ctx context.Context, m *manifest.Manifest, id string) Drift {
	d := Drift{Current: v.InstalledVersion(id, m.Dir)}

	rng := m.Range(id)
	if v.client != nil && rng != "" {
		if wanted, err := v.client.WantedVersion(ctx, id, rng); err == nil {
			d.Wanted = wanted
			d.Resolved = true
		}
		if latest, err := v.client.LatestVersion(ctx, id); err == nil {
			d.Latest = latest
		}
	}
	if d.Wanted == "" {
		d.Wanted = rng
	}
	return d
}

// Invalidate drops cached registry metadata for a package.
func (v *Versions) Invalidate(id string) {
	if v.client != nil {
		v.client.Invalidate(id)
	}
}

// InstalledVersion reads the version field of an installed package's own
// manifest. Returns "" when the package or field is missing.
func (v *Versions) InstalledVersion(id, from string) string {
	dir, ok := v.resolver.InstalledPath(id, from)
	if !ok {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return ""
	}
	return gjson.GetBytes(data, "version").String()
}
