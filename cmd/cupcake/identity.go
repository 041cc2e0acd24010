package main

import (
	"fmt"
	"os"
	"os/user"

	"github.com/eqtylab/cupcake/internal/config"
	"github.com/eqtylab/cupcake/internal/trust"
)

// deriveTrustKey resolves the four identity inputs trust.DeriveKey
// needs from the process environment itself (os.Hostname,
// os.user.Current, os.Executable, the resolved project path) rather
// than any environment variable, honoring spec.md §6's "environment
// variables are NOT consulted for security-relevant knobs" policy.
func deriveTrustKey(projectPath string, testMode bool) ([]byte, error) {
	if testMode {
		return trust.DeriveKey("", "", "", projectPath, true), nil
	}

	machineID, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolve machine identity: %w", err)
	}

	userID := "unknown"
	if u, err := user.Current(); err == nil {
		userID = u.Uid
	}

	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable path: %w", err)
	}

	return trust.DeriveKey(machineID, userID, exePath, projectPath, false), nil
}

// openTrustStore opens scope's manifest, deriving the key the same
// way trust init/update/verify always do.
func openTrustStore(scope config.Scope, projectPath string, testMode bool) (*trust.Store, error) {
	key, err := deriveTrustKey(projectPath, testMode)
	if err != nil {
		return nil, err
	}
	return trust.Open(scope.Dir, key)
}
