package cache

import (
	"fmt"
	"strings"
)

// GenerateKeyWithParams joins a prefix and parameters into a colon-separated
// cache key, e.g. GenerateKeyWithParams("snapshot", "BTCUSDT", "15m").
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}

// BuildPattern turns a key prefix into a Redis glob matching all keys under it.
func BuildPattern(prefix string) string {
	return prefix + "*"
}
