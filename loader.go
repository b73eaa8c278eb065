package tracker

import "strings"

// Load dispatches on the file's extension to the matching format loader:
// .s3m, .xm, .it, and MOD as the default fallback for anything else
// (including the classic unextended .mod), matched case-insensitively.
func Load(name string, data []byte) (*Song, error) {
	ext := strings.ToLower(name)
	switch {
	case strings.HasSuffix(ext, ".s3m"):
		return LoadS3M(data)
	case strings.HasSuffix(ext, ".xm"):
		return LoadXM(data)
	case strings.HasSuffix(ext, ".it"):
		return LoadIT(data)
	default:
		return LoadMOD(data)
	}
}
