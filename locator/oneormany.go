package locator

import (
	"bytes"
	"encoding/json"
)

// SourceDescriptor is one entry of a codec's source list in the player settings.
type SourceDescriptor struct {
	URL     string `json:"url"`
	Label   string `json:"label,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// OneOrMany decodes a JSON value that is either a single T or an array of T, so that callers only ever see a
// slice.
type OneOrMany[T any] struct {
	Items []T
}

func (o *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		o.Items = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		return json.Unmarshal(data, &o.Items)
	default:
		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return err
		}
		o.Items = []T{item}
		return nil
	}
}

// First returns the first item, if any.
func (o OneOrMany[T]) First() (T, bool) {
	var zero T
	if len(o.Items) == 0 {
		return zero, false
	}
	return o.Items[0], true
}
