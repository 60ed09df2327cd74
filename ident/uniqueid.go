package ident

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// counter is the process-local monotonically increasing counter mixed
// into every generated id.
var counter uint64

// GenerateUniqueID returns an id of the form
// "PPPPPPPP-TTTTTTTTTTTTTTTT-NNNNNNNNNNNNNNNN-CCCCCCCCCCCCCCCC": an
// 8-character upper-cased, 'X'-padded prefix, followed by three
// 16-hex-digit fields sampled from wall-clock seconds, wall-clock
// nanoseconds, and the process-local counter. Always <= MaxUniqueIDLen.
func GenerateUniqueID(prefix string) string {
	p := make([]byte, 8)
	n := NameToUpper(p, prefix)
	for i := n; i < 8; i++ {
		p[i] = 'X'
	}

	now := time.Now()
	seq := atomic.AddUint64(&counter, 1)

	return fmt.Sprintf("%s-%016x-%016x-%016x",
		p, uint64(now.Unix()), uint64(now.Nanosecond()), seq)
}

// GenerateMD5ID returns the 32-hex-character MD5 digest of s, an
// alternative id form for callers that need a fixed-width hash
// instead of GenerateUniqueID's time-based form.
func GenerateMD5ID(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
