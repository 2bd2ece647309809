package hash

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// FrameHash is the DCT-based perceptual hash of a single video frame.
type FrameHash struct {
	Hash   uint64
	Width  int
	Height int
}

// ComputeFrameHash computes the perceptual hash of a decoded frame.
func ComputeFrameHash(img image.Image) (*FrameHash, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pHash: %w", err)
	}
	return &FrameHash{
		Hash:   h.GetHash(),
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

// HammingDistance calculates the Hamming distance between two hashes.
// Returns the number of different bits (0 = identical frames).
func HammingDistance(hash1, hash2 uint64) int {
	xor := hash1 ^ hash2
	count := 0
	for xor != 0 {
		count++
		xor &= xor - 1
	}
	return count
}

// IsNearDuplicate reports whether two frames are perceptually similar within
// threshold bits. Typical thresholds:
//   - 0: identical
//   - 1-5: very similar (same frame with minor edits)
//   - 6-10: somewhat similar
//   - 11+: different frames
func IsNearDuplicate(h1, h2 *FrameHash, threshold int) bool {
	return HammingDistance(h1.Hash, h2.Hash) <= threshold
}

// String returns a hex string representation of the hash.
func (h *FrameHash) String() string {
	return fmt.Sprintf("%016x", h.Hash)
}
