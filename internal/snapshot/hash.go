// Package snapshot persists, per content type, the content hash of every
// item seen in the last successful sync, and defines the hash itself.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/cpconnect/chms-sync/internal/domain"
)

// hashEnvelope fixes the serialization shape fed to the digest. Maps are
// marshaled with sorted keys by encoding/json, so field insertion order
// never changes the hash; any value change does.
type hashEnvelope struct {
	ChmsID    string              `json:"chms_id"`
	Fields    domain.Fields       `json:"fields"`
	Terms     map[string][]string `json:"terms,omitempty"`
	Thumbnail string              `json:"thumbnail,omitempty"`
	Salt      string              `json:"salt,omitempty"`
}

// Hash returns the deterministic content hash of a canonical item. It is a
// pure function of the item's observable content: no clock, no nonce, so an
// unchanged remote record hashes identically on every pass.
func Hash(item *domain.CanonicalItem) string {
	return HashWithSalt(item, "")
}

// HashWithSalt folds an extra token into the hash input. The orchestrator
// uses a per-run salt in force-full-resync mode to make every item classify
// as changed; committed snapshots are always computed unsalted.
func HashWithSalt(item *domain.CanonicalItem, salt string) string {
	env := hashEnvelope{
		ChmsID:    item.ChmsID,
		Fields:    item.Fields,
		Terms:     item.TaxonomyTerms,
		Thumbnail: item.ThumbnailURL,
		Salt:      salt,
	}
	// Marshal of map/string/number/bool/time values cannot fail.
	data, _ := json.Marshal(env)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
