// Package trust implements the Trust Store (spec.md §4.1): a
// tamper-evident allowlist of scripts the engine is permitted to
// execute as signals or actions. Grounded on the teacher's
// pkg/trust Pack Trust Fabric, narrowed from TUF/threshold signatures
// to a single keyed-MAC manifest, since cupcake signs its own local
// scripts rather than third-party distributed packs.
package trust

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gowebpki/jcs"
)

// ManifestFile is the on-disk name under .cupcake/ (spec.md §6).
const ManifestFile = "trust.manifest"

// Entry records one trusted script and its expected content hash.
type Entry struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// manifestBody is the authenticated content; MAC is computed over its
// JCS-canonical form so field order and whitespace never affect the
// signature (spec.md §4.1, grounded on pkg/canonicalize's JCS usage).
type manifestBody struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// Manifest is the full on-disk structure: the authenticated body plus
// the outer MAC that authenticates it.
type Manifest struct {
	Body manifestBody `json:"body"`
	MAC  string       `json:"mac"`
}

// manifestVersion is bumped only if the on-disk shape changes in an
// incompatible way.
const manifestVersion = 1

// newBody builds a manifestBody with entries sorted by path, so two
// manifests with the same logical content always canonicalize
// identically regardless of filesystem iteration order.
func newBody(entries []Entry) manifestBody {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	return manifestBody{Version: manifestVersion, Entries: sorted}
}

// canonicalBody returns the JCS-canonical bytes of body, used both to
// compute and to verify the outer MAC.
func canonicalBody(body manifestBody) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("trust: marshal manifest body: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("trust: canonicalize manifest body: %w", err)
	}
	return canonical, nil
}

// sign computes the manifest's outer MAC and returns the complete,
// ready-to-serialize Manifest.
func sign(body manifestBody, key []byte) (*Manifest, error) {
	canonical, err := canonicalBody(body)
	if err != nil {
		return nil, err
	}
	return &Manifest{Body: body, MAC: computeMAC(key, canonical)}, nil
}

// writeManifest serializes m to path with owner-only permissions.
func writeManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("trust: marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("trust: create manifest dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("trust: write manifest: %w", err)
	}
	return nil
}

// readManifest loads and JSON-decodes the manifest at path.
func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("trust: parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// hashFile computes the keyed content hash recorded for a trusted
// script. Using the same derived key as the outer MAC means a script's
// hash is only meaningful alongside this engine/user/machine/project
// binding, not a bare content digest an attacker could precompute
// against a stolen copy of the script.
func hashFile(key, data []byte) string {
	return computeMAC(key, data)
}
