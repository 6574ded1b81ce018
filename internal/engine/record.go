package engine

// Kind identifies what kind of directory entry a record was discovered as.
type Kind int

const (
	Regular Kind = iota
	Symlink
)

func (k Kind) String() string {
	switch k {
	case Regular:
		return "regular"
	case Symlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// DevIno uniquely identifies an inode for hardlink detection.
type DevIno struct {
	Dev uint64
	Ino uint64
}

// FileRecord is one candidate file. Size and DevIno describe the file the
// path resolves to, so a followed symlink carries its target's identity.
type FileRecord struct {
	Path      string
	Signature Signature
	DevIno    DevIno
	Size      int64
	Seq       int // discovery order
	Kind      Kind
}
