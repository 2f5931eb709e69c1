package common

// --------------------------------------------------------------------------
// Partition Hashing
// --------------------------------------------------------------------------

// HashKey generates a hash value for a qualified document key.
// This function uses the FNV-1a hash algorithm, which is fast and has good
// distribution. The hash decides which endpoint pool an operation is routed
// to, so it must stay stable across SDK versions.
func HashKey(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64)

	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}

	return hash
}
