package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// maxNamespaceLength is the maximum length of a namespace name. Both
	// backends require names matching ^[a-z0-9_]{1,64}$.
	maxNamespaceLength = 64

	// hashSuffixLength is the length of the "_<8-char-hash>" suffix.
	hashSuffixLength = 9

	namespacePrefix = "org_"
)

// NamespaceForOrg maps an organization ID to its storage namespace. The
// mapping is deterministic and collision resistant: the readable part comes
// from sanitizing the ID, and a hash of the exact original ID is always
// appended so that two distinct IDs sanitizing to the same text still get
// distinct namespaces.
//
//	"Acme Corp"  -> "org_acme_corp_1d8f2a6b"
//	"acme.corp"  -> "org_acme_corp_9c41e07d"
func NamespaceForOrg(orgID string) string {
	hash := sha256.Sum256([]byte(orgID))
	suffix := "_" + hex.EncodeToString(hash[:])[:hashSuffixLength-1]

	base := namespacePrefix + sanitizeIdentifier(orgID)
	if len(base)+hashSuffixLength > maxNamespaceLength {
		base = strings.TrimRight(base[:maxNamespaceLength-hashSuffixLength], "_")
	}
	return base + suffix
}

// sanitizeIdentifier lowercases the input and reduces it to [a-z0-9_]:
// invalid runes become underscores, runs of underscores collapse, and
// leading/trailing underscores are trimmed.
func sanitizeIdentifier(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	out = strings.Trim(out, "_")

	if out == "" {
		return "tenant"
	}
	return out
}
