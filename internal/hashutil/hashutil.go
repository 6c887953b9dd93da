// Package hashutil provides the hash-combine and FNV-1a primitives used
// throughout the core runtime: view keys, sampler keys, descriptor
// set-layout compatibility hashes and pipeline-cache condensation all
// build on these two functions.
package hashutil

// Combine mixes a new 32-bit value into an existing running hash. Used
// by hashmap.HashMap key hashers and anywhere a struct's fields need to
// fold into a single uint32 (view keys, sampler keys).
func Combine(oldHash, newHash uint32) uint32 {
	return oldHash ^ (newHash + 0x9e3779b9 + (oldHash << 6) + (oldHash >> 2))
}

// Uint64 folds a 64-bit value (GPU virtual addresses, handles) into a
// single 32-bit hash by combining its high word into its low word.
func Uint64(n uint64) uint32 {
	return Combine(uint32(n), uint32(n>>32))
}

// Bytes hashes a byte slice by combining it four bytes at a time,
// matching hash_data's uint32-striding behavior; any trailing bytes that
// don't fill a full uint32 are ignored, matching the original's
// `size / sizeof(uint32_t)` loop bound exactly.
func Bytes(data []byte) uint32 {
	var h uint32
	n := len(data) / 4
	for i := 0; i < n; i++ {
		off := i * 4
		v := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
		h = Combine(h, v)
	}
	return h
}

// FNV1Init returns the FNV-1a offset basis used for serialized hashes
// (pipeline cache keys, shader hashes) where a stronger 64-bit digest is
// wanted.
func FNV1Init() uint64 {
	return 0xcbf29ce484222325
}

const fnvPrime = 0x100000001b3

// FNV1IterateByte folds one byte into a running FNV-1a digest.
func FNV1IterateByte(h uint64, value byte) uint64 {
	return (h * fnvPrime) ^ uint64(value)
}

// FNV1IterateUint32 folds one uint32 into a running FNV-1a digest.
func FNV1IterateUint32(h uint64, value uint32) uint64 {
	return (h * fnvPrime) ^ uint64(value)
}

// FNV1IterateUint64 folds one uint64 into a running FNV-1a digest as two
// 32-bit halves, low word first, matching the original's split.
func FNV1IterateUint64(h uint64, value uint64) uint64 {
	h = FNV1IterateUint32(h, uint32(value))
	h = FNV1IterateUint32(h, uint32(value>>32))
	return h
}

// FNV1IterateString folds a NUL-terminated string into a running FNV-1a
// digest, including the terminating NUL the same way the C
// implementation always folds a trailing zero byte.
func FNV1IterateString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h = FNV1IterateByte(h, s[i])
	}
	return FNV1IterateByte(h, 0)
}
