package storage

import (
	"encoding/json"
	"fmt"
)

// LoadJSON decodes the value stored at key into v. It reports false when the
// key is missing.
func LoadJSON(kv KeyValueStore, key string, v any) (bool, error) {
	raw, ok, err := kv.Get(key)
	if err != nil || !ok {
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return true, nil
}

// SaveJSON stores v encoded as JSON at key
func SaveJSON(kv KeyValueStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	return kv.Set(key, string(data))
}

// LoadClientID returns the stored OAuth client id, or "" when none is set
func LoadClientID(kv KeyValueStore) (string, error) {
	id, _, err := kv.Get(KeyClientID)
	return id, err
}

func SaveClientID(kv KeyValueStore, clientID string) error {
	return kv.Set(KeyClientID, clientID)
}

func ClearClientID(kv KeyValueStore) error {
	return kv.Delete(KeyClientID)
}
