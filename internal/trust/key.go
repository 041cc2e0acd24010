package trust

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// testModeKey is the fixed constant substituted for real key material
// when DeriveKey is called with testMode set to true, so manifest
// fixtures are reproducible across machines and users (spec.md §4.1,
// "In a testing mode the derivation is replaced by a fixed constant").
var testModeKey = []byte("cupcake-trust-fixed-test-mode-key-do-not-use-in-prod")

// DeriveKey derives the manifest MAC key from machine identity, user
// identity, the engine's own executable path, and the project's
// canonical path (spec.md §4.1). None of these four inputs are
// secrets on their own; the derivation binds trust to "this engine
// binary, run by this user, on this machine, for this project" so a
// manifest copied to a different machine or project fails verification
// even if the raw script hashes happen to match.
func DeriveKey(machineID, userID, exePath, projectPath string, testMode bool) []byte {
	if testMode {
		return testModeKey
	}

	info := fmt.Sprintf("cupcake-trust-v1|%s|%s|%s|%s", machineID, userID, exePath, projectPath)
	salt := sha256.Sum256([]byte("cupcake-trust-salt"))

	kdf := hkdf.New(sha256.New, []byte(info), salt[:], nil)
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		// hkdf.New/Read only fail when the requested length exceeds
		// the RFC 5869 maximum output, which 32 bytes never does.
		panic(fmt.Sprintf("trust: key derivation failed: %v", err))
	}
	return key
}

// computeMAC returns the lowercase-hex HMAC-SHA256 of data under key,
// prefixed so the format is self-describing on disk.
func computeMAC(key, data []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return "hmac-sha256:" + hex.EncodeToString(mac.Sum(nil))
}

// verifyMAC compares an expected MAC string against one freshly
// computed over data, in constant time. The two encoded MAC strings
// are compared with subtle.ConstantTimeCompare, so verifyMAC never
// short-circuits on the first differing byte (spec.md §4.1 invariant, §9 "any
// language-specific equal that short-circuits... is unsafe").
func verifyMAC(expected string, key, data []byte) bool {
	got := computeMAC(key, data)
	return constantTimeStringEqual(got, expected)
}

// constantTimeStringEqual compares two strings without short-circuiting
// on the first differing byte (spec.md §4.1, §9).
func constantTimeStringEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
