package iris

import "fmt"

// Version is a three-component major.minor.build triple. It appears in the
// fixed header of an IFE file (the container format version, checked for
// forward compatibility on open) and, in the root directory, as both
// CodecVersion and the metadata's Codec field (the codec build that
// produced the file, purely informational).
type Version struct {
	Major uint32
	Minor uint32
	Build uint32
}

// String renders the version as "major.minor.build".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// Compare returns -1, 0, or 1 if v is less than, equal to, or greater than o,
// comparing Major then Minor then Build.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmp3(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmp3(v.Minor, o.Minor)
	default:
		return cmp3(v.Build, o.Build)
	}
}

func cmp3(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CodecVersion is the version of this module's codec implementation,
// written into every file this module encodes.
var CodecVersion = Version{Major: 2025, Minor: 1, Build: 0}

// MaxSupportedFormatVersion is the highest container format version this
// reader understands. Opening a file whose header version exceeds this
// fails validation rather than risk silently misinterpreting a newer layout.
var MaxSupportedFormatVersion = Version{Major: 2025, Minor: 1, Build: 0}
