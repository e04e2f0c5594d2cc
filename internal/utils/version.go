package utils

import "fmt"

// VersionInfo represents the components of a packed engine version
type VersionInfo struct {
	Major    int
	Minor    int
	Revision int
	Build    int
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Revision, v.Build)
}

// UnpackEngineVersion splits a packed engine version. wide selects the
// 64-bit packing used by resources with an extended header; older resources
// pack the version into 32 bits.
func UnpackEngineVersion(v int64, wide bool) VersionInfo {
	if wide {
		u := uint64(v)
		return VersionInfo{
			Major:    int((u >> 55) & 0x7F),
			Minor:    int((u >> 47) & 0xFF),
			Revision: int((u >> 31) & 0xFFFF),
			Build:    int(u & 0x7FFFFFFF),
		}
	}

	u := uint32(v)
	return VersionInfo{
		Major:    int((u >> 28) & 0x0F),
		Minor:    int((u >> 24) & 0x0F),
		Revision: int((u >> 16) & 0xFF),
		Build:    int(u & 0xFFFF),
	}
}

// FormatEngineVersion renders a packed engine version as major.minor.revision.build
func FormatEngineVersion(v int64, wide bool) string {
	return UnpackEngineVersion(v, wide).String()
}
