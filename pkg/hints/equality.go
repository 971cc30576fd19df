package hints

import (
	"bytes"
	"encoding/json"
)

// JSONEqual reports structural equality under JSON normalization:
// both values are marshaled and the canonical encodings compared.
// Map keys marshal in sorted order, so equal structures always
// produce equal bytes regardless of construction order. Values that
// cannot marshal are never equal.
func JSONEqual(a, b any) bool {
	da, err := json.Marshal(a)
	if err != nil {
		return false
	}
	db, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(da, db)
}
