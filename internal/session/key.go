package session

import (
	"strconv"
	"unicode/utf16"
)

const storageKeyPrefix = "ragflow-chat-session-"

// StorageKey derives the stable key a widget instance persists its
// session under. Instances pointed at the same completion endpoint and
// model share a key; changing either yields a new one.
func StorageKey(endpoint, model string) string {
	if model == "" {
		model = "default"
	}
	return storageKeyPrefix + hash36(endpoint+model)
}

// hash36 is a 32-bit string hash rendered in base 36. It matches the
// classic (h << 5) - h + c rolling hash with int32 wraparound, fed
// one UTF-16 code unit at a time as charCodeAt would produce them.
func hash36(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	// abs through int64 so MinInt32 does not overflow
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
