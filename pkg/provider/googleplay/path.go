package googleplay

import (
	"bytes"
	"encoding/json"
	"time"
)

// at walks nested JSON arrays by index and returns nil when any step is
// missing or not an array
func at(raw json.RawMessage, path ...int) json.RawMessage {
	current := raw
	for _, idx := range path {
		if isNull(current) {
			return nil
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(current, &arr); err != nil {
			return nil
		}
		if idx < 0 || idx >= len(arr) {
			return nil
		}
		current = arr[idx]
	}
	return current
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func stringAt(raw json.RawMessage, path ...int) string {
	if s := optionalStringAt(raw, path...); s != nil {
		return *s
	}
	return ""
}

func optionalStringAt(raw json.RawMessage, path ...int) *string {
	v := at(raw, path...)
	if isNull(v) {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil
	}
	return &s
}

func intAt(raw json.RawMessage, path ...int) int {
	v := at(raw, path...)
	if isNull(v) {
		return 0
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0
	}
	return int(f)
}

// timeAt reads a unix timestamp in seconds
func timeAt(raw json.RawMessage, path ...int) *time.Time {
	v := at(raw, path...)
	if isNull(v) {
		return nil
	}
	var secs float64
	if err := json.Unmarshal(v, &secs); err != nil || secs <= 0 {
		return nil
	}
	t := time.Unix(int64(secs), 0).UTC()
	return &t
}
