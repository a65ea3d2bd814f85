// Package reshape interprets the single JSON column returned by a rendered
// query back into the response shape: splitting list from single-item
// results and synthesizing the pagination envelope
// (items / endCursor / hasNextPage) from the over-fetched row set.
package reshape

import (
	"bytes"
	"encoding/json"
	"fmt"

	"dbgateway/internal/cursor"
	"dbgateway/internal/querybuild"
)

// Reshape converts the raw database JSON for a query into the final
// response JSON according to the query's pagination metadata. A null
// database result for a list query is an empty array, never an error.
func Reshape(raw json.RawMessage, meta *querybuild.PaginationMetadata) (json.RawMessage, error) {
	if meta == nil || meta.Structure == nil {
		return nil, fmt.Errorf("pagination metadata is required")
	}
	if isNull(raw) {
		if meta.Structure.IsListQuery {
			raw = json.RawMessage("[]")
		} else {
			return json.RawMessage("null"), nil
		}
	}

	if !meta.Structure.IsListQuery {
		return reshapeObject(raw, meta)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unexpected database result shape: %w", err)
	}

	// Nested envelopes are synthesized before trimming so a dropped
	// over-fetch row never contributes nested cursors.
	for i, item := range items {
		reshaped, err := reshapeObject(item, meta)
		if err != nil {
			return nil, err
		}
		items[i] = reshaped
	}

	if !meta.IsPaginated {
		return json.Marshal(items)
	}
	return envelope(items, meta)
}

// envelope builds the connection envelope for one level.
func envelope(items []json.RawMessage, meta *querybuild.PaginationMetadata) (json.RawMessage, error) {
	hasNext := false
	if meta.RequestedHasNextPage {
		limit := meta.Structure.Limit()
		// The renderer requests exactly limit rows, so equality is the only
		// possible over-fetch signal.
		if uint64(len(items)) == limit {
			hasNext = true
			items = items[:len(items)-1]
		}
	}

	result := make(map[string]interface{}, 3)
	if meta.RequestedItems {
		result["items"] = rawSlice(items)
	}
	if meta.RequestedHasNextPage {
		result["hasNextPage"] = hasNext
	}
	if meta.RequestedEndCursor && len(items) > 0 {
		token, err := endCursor(items[len(items)-1], meta.Structure)
		if err != nil {
			return nil, err
		}
		result["endCursor"] = token
	}
	return json.Marshal(result)
}

// reshapeObject recurses into an item's relationship fields whose metadata
// declares nested pagination, replacing their raw arrays with envelopes.
func reshapeObject(raw json.RawMessage, meta *querybuild.PaginationMetadata) (json.RawMessage, error) {
	if len(meta.Subqueries) == 0 || isNull(raw) {
		return raw, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unexpected database result shape: %w", err)
	}
	changed := false
	for label, childMeta := range meta.Subqueries {
		if label == "items" && childMeta.Structure == meta.Structure {
			// Synthetic node aligning connection metadata with the JSON
			// shape; it carries no independent data to reshape.
			continue
		}
		value, ok := fields[label]
		if !ok {
			continue
		}
		reshaped, err := Reshape(value, childMeta)
		if err != nil {
			return nil, err
		}
		fields[label] = reshaped
		changed = true
	}
	if !changed {
		return raw, nil
	}
	return json.Marshal(fields)
}

// endCursor builds the next-page cursor from the last remaining element.
func endCursor(item json.RawMessage, q *querybuild.QueryStructure) (string, error) {
	decoder := json.NewDecoder(bytes.NewReader(item))
	decoder.UseNumber()
	var row map[string]interface{}
	if err := decoder.Decode(&row); err != nil {
		return "", fmt.Errorf("unexpected database result shape: %w", err)
	}
	return cursor.MakeCursor(row, q.PrimaryKey, q.ExplicitOrderBy(), "")
}

func rawSlice(items []json.RawMessage) []json.RawMessage {
	if items == nil {
		return []json.RawMessage{}
	}
	return items
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
