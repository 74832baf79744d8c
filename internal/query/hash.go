package query

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// CacheKey derives the content-addressed cache key for a query.
//
// The query is marshalled, decoded into a generic map and re-marshalled
// so that the canonical form depends only on field values: Go sorts map
// keys during encoding, which makes the key insensitive to the key
// order of any JSON the query was parsed from.
func CacheKey(q *Query) (string, error) {
	canonical, err := canonicalJSON(q)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize query: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("%x", sum), nil
}

func canonicalJSON(q *Query) ([]byte, error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
