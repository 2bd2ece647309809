package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ContentID derives a stable content identifier from a video file path.
// The identifier is the base name without extension, so two files with the
// same name in different directories map to the same identifier. Keying by
// file content hash would avoid that; see FileSha256.
func ContentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FileSha256 computes the hex-encoded SHA-256 of a local file's content.
func FileSha256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to read file data: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
