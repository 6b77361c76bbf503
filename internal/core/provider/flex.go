package provider

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexFloat 數字或數字字串；空字串與無法解析的值視為 0
type FlexFloat float64

// UnmarshalJSON 接受數字、字串或 null
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(trimmed)
	if trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// Int 轉為整數（截斷）
func (f FlexFloat) Int() int {
	return int(f)
}

// FlexString 字串或數字，統一以字串保存（供應商 ID 常以數字回傳）
type FlexString string

// UnmarshalJSON 接受字串、數字或 null
func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(trimmed)
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
