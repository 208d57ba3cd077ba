package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// hashThreshold is the string length above which a component is hashed
// instead of embedded directly. Digests are truncated so large payloads
// (a full weather response, a long prompt) never blow up key length.
const (
	hashThreshold = 48
	digestWidth   = 16
	keySeparator  = "_"
)

// Key derives a deterministic cache key from a prefix and an ordered list of
// heterogeneous components. Maps are canonicalized by JSON-encoding with
// sorted keys before hashing, so insertion order never affects the result.
// Digests are hex and scalars carry no separator, so keys with different
// prefixes cannot collide.
func Key(prefix string, components ...any) string {
	parts := make([]string, 0, len(components)+1)
	parts = append(parts, prefix)
	for _, c := range components {
		parts = append(parts, canonicalToken(c))
	}
	return strings.Join(parts, keySeparator)
}

// canonicalToken produces a bounded-length deterministic token for a single
// key component, one case per semantic container shape.
func canonicalToken(component any) string {
	switch v := component.(type) {
	case nil:
		return "nil"
	case string:
		if len(v) > hashThreshold {
			return shortDigest([]byte(v))
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}

	rv := reflect.ValueOf(component)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr:
		// encoding/json emits map keys in sorted order, which makes the
		// encoding canonical regardless of insertion order.
		encoded, err := json.Marshal(component)
		if err != nil {
			return shortDigest([]byte(fmt.Sprintf("%v", component)))
		}
		return shortDigest(encoded)
	default:
		return fmt.Sprintf("%v", component)
	}
}

func shortDigest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:digestWidth]
}
