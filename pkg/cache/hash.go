package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// StampMissing is the FileStamp of a file that cannot be read.
const StampMissing = "missing"

// hashKey joins prefix and the SHA-256 of the JSON-encoded parts.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashJSON hashes the JSON encoding of v. Map keys are encoded sorted, so
// equal values always hash the same.
func HashJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Hash(data), nil
}

// FileStamp identifies the current contents of the file at path by size and
// modification time, without reading it. Replacing a card's artwork changes
// its stamp and so its render key. An empty path stamps as "".
func FileStamp(path string) string {
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return StampMissing
	}
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}
