// Package compress is the storage codec for edit payloads.
//
// Payloads, full snapshots and patches alike, are stored deflate-
// compressed at the highest compression level. The codec also carries
// the legacy decode path for records written before compression was
// introduced: those payloads are raw UTF-8 bytes, detected by the
// caller via the record's missing storage-type marker, and decoded by
// identity rather than failing.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// ErrCorrupt is wrapped into every decompression failure so callers
// can classify the fault without string matching.
var ErrCorrupt = fmt.Errorf("payload is corrupt or not deflate data")

// Compress deflates content at the best compression level.
// Zero-length content maps to a zero-length payload (defined edge
// case, not an error).
func Compress(content string) ([]byte, error) {
	if len(content) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a payload produced by Compress. A zero-length
// payload maps back to empty content. Corrupt input returns an error
// wrapping ErrCorrupt; callers must not substitute empty content.
func Decompress(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}

	r := flate.NewReader(bytes.NewReader(payload))
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decompress: %w: %v", ErrCorrupt, err)
	}
	return string(data), nil
}

// DecompressLegacy decodes a pre-compression payload. Records written
// before the compressed schema stored raw UTF-8 bytes; the decode is
// the identity and cannot fail.
func DecompressLegacy(payload []byte) string {
	return string(payload)
}
