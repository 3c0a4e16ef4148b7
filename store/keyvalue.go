package store

import (
	"context"
	"encoding/json"

	"mtaaspace/domain"
)

// Load reads the value under key into dest. The second return is false when
// the key is absent (or the stored document was unreadable and the adapter
// degraded it to absent).
func Load(ctx context.Context, kv domain.KeyValueStore, key string, dest interface{}) (bool, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// The adapter vouched for the payload but the target type does not
		// fit it. Treat as absent, same policy as a corrupt record.
		return false, nil
	}
	return true, nil
}

// Save marshals value and writes it under key.
func Save(ctx context.Context, kv domain.KeyValueStore, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, raw)
}
