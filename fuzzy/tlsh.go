package fuzzy

import (
	"bufio"
	"os"

	"github.com/glaslos/tlsh"
)

// tlshHasher produces TLSH digests. Two downloads with nearby digests are
// probably the same payload under different names, which is exactly the trick
// repackaged malware pulls.
type tlshHasher struct{}

func (tlshHasher) Name() string { return "tlsh" }

// HashFile digests the file contents. TLSH refuses inputs that are too small
// or too uniform; the caller treats that as "no digest", not as a failure of
// the scan.
func (tlshHasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	digest, err := tlsh.HashReader(bufio.NewReader(f))
	if err != nil {
		return "", err
	}
	return digest.String(), nil
}

func init() {
	Register(tlshHasher{})
}
