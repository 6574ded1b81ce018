package engine

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

const (
	// PartialSize is how many leading bytes a partial signature covers.
	PartialSize = 4096
	// chunkSize bounds each read while streaming a full signature.
	chunkSize = 8192
	// digestSize is the signature width in bytes (128 bits).
	digestSize = 16
)

// Level is a refinement level. Levels are applied in declaration order.
type Level int

const (
	LevelSize Level = iota
	LevelPartial
	LevelFull
)

var levelNames = [...]string{
	LevelSize:    "size",
	LevelPartial: "partial",
	LevelFull:    "full",
}

func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// Signature is the lowercase hex encoding of a 128-bit digest over a
// file's size and, above LevelSize, its content.
type Signature string

// ErrShortRead is returned when a file holds fewer bytes than its recorded size.
var ErrShortRead = errors.New("file shorter than recorded size")

// ComputeSignature fingerprints rec at the given level. The size is always
// hashed first so a short file never collides with a longer file's prefix.
// The same size and bytes yield the same signature regardless of path.
func ComputeSignature(rec *FileRecord, level Level) (Signature, error) {
	return computeSignature(rec, level, nil)
}

// computeSignature is ComputeSignature with file reads passed through wrap
// when it is non-nil.
func computeSignature(rec *FileRecord, level Level, wrap func(io.Reader) io.Reader) (Signature, error) {
	if rec.Size < 0 {
		return "", fmt.Errorf("signature %s: negative size %d", rec.Path, rec.Size)
	}

	h := blake3.New()
	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(rec.Size))
	_, _ = h.Write(sizeBuf[:]) //nolint:errcheck // hash writes never fail

	var limit int64
	switch level {
	case LevelSize:
		return sum(h), nil
	case LevelPartial:
		limit = min(rec.Size, PartialSize)
	case LevelFull:
		limit = rec.Size
	default:
		return "", fmt.Errorf("signature %s: unknown level %d", rec.Path, level)
	}

	if err := hashContent(h, rec.Path, limit, wrap); err != nil {
		return "", err
	}
	return sum(h), nil
}

// hashContent streams the first n bytes of path into w in bounded chunks.
func hashContent(w io.Writer, path string, n int64, wrap func(io.Reader) io.Reader) error {
	f, err := openForRead(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if n == 0 {
		return nil
	}
	var r io.Reader = io.LimitReader(f, n)
	if wrap != nil {
		r = wrap(r)
	}
	buf := make([]byte, min(n, chunkSize))
	written, err := io.CopyBuffer(w, r, buf)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if written != n {
		return fmt.Errorf("read %s: %w (got %d of %d bytes)", path, ErrShortRead, written, n)
	}
	return nil
}

func sum(h *blake3.Hasher) Signature {
	digest := h.Sum(nil)
	return Signature(hex.EncodeToString(digest[:digestSize]))
}
