package store

import (
	"encoding/json"
	"fmt"

	"github.com/SpongePowered/Common-sub001/internal/ir"
)

// marshalIDs converts a node ID list to canonical JSON TEXT for storage.
func marshalIDs(ids []int) (string, error) {
	items := make([]any, len(ids))
	for i, id := range ids {
		items[i] = id
	}
	data, err := ir.MarshalCanonical(items)
	if err != nil {
		return "", fmt.Errorf("marshal ids: %w", err)
	}
	return string(data), nil
}

// unmarshalIDs parses a stored ID list. Empty text is an empty list.
func unmarshalIDs(data string) ([]int, error) {
	if data == "" || data == "[]" {
		return []int{}, nil
	}
	var ids []int
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal ids: %w", err)
	}
	return ids, nil
}

// MarshalDetail converts a node payload to the canonical JSON stored in
// Node.Detail.
func MarshalDetail(detail map[string]any) (string, error) {
	if detail == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(detail)
	if err != nil {
		return "", fmt.Errorf("marshal detail: %w", err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
