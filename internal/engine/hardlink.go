package engine

import "log/slog"

// FilterHardlinks collapses members of b that share an inode, keeping the
// first occurrence of each (device, inode) pair. When followSymlinks is
// set a symlink is always kept, even if its target was already seen, so
// a link and its target are both reported. Members are filtered in place
// and the removed records are returned in member order.
func FilterHardlinks(b *Bucket, followSymlinks bool) []*FileRecord {
	if b.Len() < 2 {
		return nil
	}

	seen := make(map[DevIno]struct{}, b.Len())
	recs := b.Take()
	kept := make([]*FileRecord, 0, len(recs))
	var removed []*FileRecord

	for _, rec := range recs {
		if _, dup := seen[rec.DevIno]; !dup {
			seen[rec.DevIno] = struct{}{}
			kept = append(kept, rec)
			continue
		}
		if followSymlinks && rec.Kind == Symlink {
			kept = append(kept, rec)
			continue
		}
		slog.Debug("inode already seen, removing from group",
			"path", rec.Path, "dev", rec.DevIno.Dev, "ino", rec.DevIno.Ino)
		removed = append(removed, rec)
	}

	b.replace(kept)
	return removed
}
