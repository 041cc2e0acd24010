package config

import (
	"os"
	"path/filepath"
)

// ProjectDirName is the on-disk scope directory under a project root
// (spec.md §6 "On-disk layout (project scope)").
const ProjectDirName = ".cupcake"

// Scope is one of the two layers evaluation mirrors over: project
// (the repo's own .cupcake/) and global (a per-user config root).
// Global policies/<harness>/ is authoritative over project's (spec.md
// §6 "Global scope: mirror under an OS-appropriate config root, with
// policies/<harness>/ being authoritative over project").
type Scope struct {
	Dir    string
	Global bool
}

// ProjectScope resolves to <projectRoot>/.cupcake.
func ProjectScope(projectRoot string) Scope {
	return Scope{Dir: filepath.Join(projectRoot, ProjectDirName)}
}

// GlobalScope resolves to the OS-appropriate per-user config root's
// cupcake subdirectory, via os.UserConfigDir() (e.g. ~/.config/cupcake
// on Linux, ~/Library/Application Support/cupcake on macOS) — never a
// hardcoded path, and never read from an environment variable other
// than the ones os.UserConfigDir() itself consults, per spec.md §6's
// "environment variables are NOT consulted for security-relevant
// knobs" policy.
func GlobalScope() (Scope, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return Scope{}, err
	}
	return Scope{Dir: filepath.Join(root, "cupcake"), Global: true}, nil
}

func (s Scope) RulebookPath() string       { return filepath.Join(s.Dir, RulebookFile) }
func (s Scope) SystemEntrypointDir() string { return filepath.Join(s.Dir, "system") }
func (s Scope) PoliciesDir(harness string) string {
	return filepath.Join(s.Dir, "policies", harness)
}
func (s Scope) SignalsDir() string        { return filepath.Join(s.Dir, "signals") }
func (s Scope) ActionsDir() string        { return filepath.Join(s.Dir, "actions") }
func (s Scope) TrustManifestPath() string { return filepath.Join(s.Dir, "trust.manifest") }
func (s Scope) DebugDir() string          { return filepath.Join(s.Dir, "debug") }
func (s Scope) WatchdogConfigPath() string {
	return filepath.Join(s.Dir, WatchdogConfigFile)
}

// Exists reports whether the scope directory has already been
// scaffolded (e.g. by a previous `cupcake init`).
func (s Scope) Exists() bool {
	info, err := os.Stat(s.Dir)
	return err == nil && info.IsDir()
}
