package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"sync"

	"downguard/logger"

	"lukechampine.com/blake3"
)

// Two buffer classes: downloads worth hashing are usually either small
// documents or large installers.
const (
	smallBufferSize = 32 * 1024
	largeBufferSize = 128 * 1024
	largeFileCutoff = 256 * 1024
)

var smallBuffers = sync.Pool{New: func() interface{} {
	buf := make([]byte, smallBufferSize)
	return &buf
}}

var largeBuffers = sync.Pool{New: func() interface{} {
	buf := make([]byte, largeBufferSize)
	return &buf
}}

func newDigest(algo string) hash.Hash {
	switch algo {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	case "sha256":
		return sha256.New()
	case "blake3":
		return blake3.New(32, nil)
	}
	return nil
}

// ComputeHashes streams the file once through every requested algorithm and
// returns hex digests keyed by algorithm name. Duplicate and unknown names
// are dropped. An unreadable file yields an empty map; callers treat a
// missing digest as "hash unavailable".
func ComputeHashes(path string, algorithms []string) map[string]string {
	digests := make(map[string]hash.Hash, len(algorithms))
	order := make([]string, 0, len(algorithms))
	for _, algo := range algorithms {
		if _, dup := digests[algo]; dup {
			continue
		}
		d := newDigest(algo)
		if d == nil {
			logger.Warnf("Unsupported hash algorithm: %s", algo)
			continue
		}
		digests[algo] = d
		order = append(order, algo)
	}

	result := make(map[string]string, len(order))
	if len(order) == 0 {
		return result
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Warnf("Could not open %s for hashing: %v", path, err)
		return result
	}
	defer file.Close()

	pool := &smallBuffers
	if info, statErr := file.Stat(); statErr == nil && info.Size() >= largeFileCutoff {
		pool = &largeBuffers
	}
	bufPtr := pool.Get().(*[]byte)
	defer pool.Put(bufPtr)

	writers := make([]io.Writer, 0, len(order))
	for _, algo := range order {
		writers = append(writers, digests[algo])
	}
	if _, err := io.CopyBuffer(io.MultiWriter(writers...), file, *bufPtr); err != nil {
		logger.Warnf("Hashing %s failed partway: %v", path, err)
		return result
	}

	for _, algo := range order {
		result[algo] = hex.EncodeToString(digests[algo].Sum(nil))
	}
	return result
}
