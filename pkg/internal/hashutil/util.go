// Package hashutil detects config changes by content.
package hashutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
)

// JsonHash returns the sha256 hash of the JSON representation of v.
func JsonHash(v any) ([]byte, error) {
	j, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(j)
	return h[:], nil
}

// Changed hashes v and reports whether it differs from prev.
// The returned hash replaces prev for the next comparison.
func Changed(prev []byte, v any) (hash []byte, changed bool, err error) {
	hash, err = JsonHash(v)
	if err != nil {
		return prev, false, err
	}
	return hash, !bytes.Equal(prev, hash), nil
}
