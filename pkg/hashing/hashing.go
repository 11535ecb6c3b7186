package hashing

import (
	"hash/fnv"
	"sort"
	"strings"
)

const maxDescriptionLen = 1000

const hexDigits = "0123456789abcdef"

// ContentHash computes the idempotency key for a catalog record. It folds a
// fixed subset of identity fields into a short non-cryptographic digest. The
// same logical content always yields the same digest regardless of where the
// fields came from; collisions are tolerated because the digest is a cache
// key, not a security boundary.
func ContentHash(partNumber, name, manufacturer, description string) string {
	if len(description) > maxDescriptionLen {
		description = description[:maxDescriptionLen]
	}

	fields := map[string]string{
		"description":  description,
		"manufacturer": manufacturer,
		"name":         name,
		"partNumber":   partNumber,
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(b.String()))
	sum := h.Sum64()

	// Fold 64 bits down to 32 and render as 8 lowercase hex chars.
	folded := uint32(sum>>32) ^ uint32(sum)
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = hexDigits[folded&0xf]
		folded >>= 4
	}
	return string(out)
}
