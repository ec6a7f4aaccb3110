package docstore

import (
	"fmt"
	"hash/fnv"
	"path"
	"path/filepath"
	"strings"
)

// SafeKey derives a staging key from an uploaded filename. The slug keeps
// keys readable, the short hash keeps distinct source names from colliding
// after slugging, and the whole thing is deterministic so re-uploading a
// document overwrites its staged copy.
//
// "Q3 Balance Sheet (final).PDF" becomes "q3-balance-sheet-final-<hash>.pdf".
func SafeKey(filename string) string {
	base := path.Base(filepath.ToSlash(strings.TrimSpace(filename)))
	ext := sanitizeExt(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))
	slug := slugifyASCII(stem)
	if slug == "" {
		slug = "doc"
	}
	return slug + "-" + shortHashHex(base) + ext
}

// MarkdownKey returns the key under which the parsed markdown of a staged
// document is stored.
func MarkdownKey(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + ".md"
}

func sanitizeExt(ext string) string {
	if ext == "" || ext == "." {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToLower(ext[1:]) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "." + b.String()
}

func shortHashHex(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	sum := h.Sum64()
	return fmt.Sprintf("%08x", uint32(sum&0xffffffff))
}

func slugifyASCII(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		default:
			// Everything else, non-ASCII letters included, folds into one
			// dash; the hash keeps distinct names distinct.
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
