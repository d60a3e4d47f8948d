package record

import (
	"path/filepath"
	"time"
)

// TimestampLayout names output files after the local time, to the second
const TimestampLayout = "20060102150405"

// Namer generates timestamp-based output file names. Two names requested
// within the same second are identical.
type Namer struct {
	Dir string
	Now func() time.Time
}

// NewNamer creates a namer writing into dir using the wall clock
func NewNamer(dir string) *Namer {
	return &Namer{Dir: dir, Now: time.Now}
}

// Next returns a path such as dir/20240131235959.ext
func (n *Namer) Next(ext string) string {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	return filepath.Join(n.Dir, now().Format(TimestampLayout)+"."+ext)
}
