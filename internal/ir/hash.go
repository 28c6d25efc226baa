package ir

import "github.com/minio/highwayhash"

// hashKey is a fixed 32-byte key for the content fingerprints attached
// to interned entities (LogicalType.Hash, Streamlet.Hash). It has no
// secrecy requirement — the fingerprint is informational, not a
// security boundary — so a static key is
// fine (mirrors the graph-hashing approach in the inspector package
// this is grounded on).
var hashKey = []byte("til-ir-content-hash-key-32bytes!")

// contentHash fingerprints a canonical key string. It is not used for
// interning identity (the table's map key is authoritative there); it
// gives LogicalType and Streamlet a stable, compact content
// fingerprint. Neither the IR JSON dump nor the tests read it.
func contentHash(canonical string) uint64 {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		// hashKey is a fixed, correctly-sized constant; New64 only
		// fails on a wrong-length key.
		panic(err)
	}
	_, _ = h.Write([]byte(canonical))
	return h.Sum64()
}
