package provider

import (
	"bytes"
	"encoding/json"
)

// OneOrMany 供應商在只有一筆時回傳物件、多筆時回傳陣列的欄位
type OneOrMany[T any] []T

// UnmarshalJSON 接受陣列、單一物件或 null
func (o *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*o = nil
		return nil
	}
	if trimmed[0] == '[' {
		var many []T
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*o = OneOrMany[T]{one}
	return nil
}

// First 取第一筆
func (o OneOrMany[T]) First() (T, bool) {
	var zero T
	if len(o) == 0 {
		return zero, false
	}
	return o[0], true
}
