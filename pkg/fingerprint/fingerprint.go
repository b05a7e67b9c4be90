// Package fingerprint derives content hashes for records, used to detect
// full-row duplicates in watchlists
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// RecordExclusions are the fields ignored when comparing rows for equality
var RecordExclusions = map[string]bool{"id": true}

// GenerateWithExclusions creates a deterministic fingerprint for a flat field
// map, ignoring the named keys. The fingerprint is a SHA256 hash of the
// canonicalized JSON.
func GenerateWithExclusions(data map[string]any, excludeFields map[string]bool) string {
	hash := sha256.Sum256([]byte(canonicalize(data, excludeFields)))
	return hex.EncodeToString(hash[:])
}

// Record fingerprints a record's content, excluding its id. Missing values
// are encoded as null so they differ from empty strings.
func Record(r models.Record) string {
	return GenerateWithExclusions(ToMap(r), RecordExclusions)
}

// ToMap flattens a record into a field map
func ToMap(r models.Record) map[string]any {
	m := map[string]any{"id": r.ID}
	for _, f := range models.RecordFields {
		if v := r.Value(f); v != nil {
			m[string(f)] = *v
		} else {
			m[string(f)] = nil
		}
	}
	return m
}

func canonicalize(m map[string]any, excludeFields map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if excludeFields[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		keyJSON, _ := json.Marshal(k)
		valueJSON, _ := json.Marshal(m[k])
		b.Write(keyJSON)
		b.WriteByte(':')
		b.Write(valueJSON)
	}
	b.WriteByte('}')
	return b.String()
}
