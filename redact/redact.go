// Package redact scrubs secrets from text before it is persisted. Working
// memory entries and session summaries carry free-form text pasted from tool
// output, so everything written to disk passes through here first.
package redact

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// secretPattern matches high-entropy strings that may be secrets.
var secretPattern = regexp.MustCompile(`[A-Za-z0-9/+_=-]{10,}`)

// entropyThreshold is the minimum Shannon entropy for a string to be considered
// a secret. 4.5 was chosen through trial and error: high enough to avoid false
// positives on common words and identifiers, low enough to catch typical API keys
// and tokens which tend to have entropy well above 5.0.
const entropyThreshold = 4.5

var (
	gitleaksDetector     *detect.Detector
	gitleaksDetectorOnce sync.Once
)

func getDetector() *detect.Detector {
	gitleaksDetectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		gitleaksDetector = d
	})
	return gitleaksDetector
}

// region represents a byte range to redact.
type region struct{ start, end int }

// String replaces secrets in s with "REDACTED" using layered detection:
// 1. Entropy-based: high-entropy alphanumeric sequences (threshold 4.5)
// 2. Pattern-based: gitleaks regex rules (180+ known secret formats)
// A string is redacted if EITHER method flags it.
func String(s string) string {
	var regions []region

	// 1. Entropy-based detection.
	for _, loc := range secretPattern.FindAllStringIndex(s, -1) {
		if shannonEntropy(s[loc[0]:loc[1]]) > entropyThreshold {
			regions = append(regions, region{loc[0], loc[1]})
		}
	}

	// 2. Pattern-based detection via gitleaks.
	if d := getDetector(); d != nil {
		for _, f := range d.DetectString(s) {
			if f.Secret == "" {
				continue
			}
			searchFrom := 0
			for {
				idx := strings.Index(s[searchFrom:], f.Secret)
				if idx < 0 {
					break
				}
				absIdx := searchFrom + idx
				regions = append(regions, region{absIdx, absIdx + len(f.Secret)})
				searchFrom = absIdx + len(f.Secret)
			}
		}
	}

	if len(regions) == 0 {
		return s
	}

	// Merge overlapping regions and build result.
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].start < regions[j].start
	})
	merged := []region{regions[0]}
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.start <= last.end {
			if r.end > last.end {
				last.end = r.end
			}
		} else {
			merged = append(merged, r)
		}
	}

	var b strings.Builder
	prev := 0
	for _, r := range merged {
		b.WriteString(s[prev:r.start])
		b.WriteString("REDACTED")
		prev = r.end
	}
	b.WriteString(s[prev:])
	return b.String()
}

// Bytes is a convenience wrapper around String for []byte content.
func Bytes(b []byte) []byte {
	s := string(b)
	redacted := String(s)
	if redacted == s {
		return b
	}
	return []byte(redacted)
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for i := range len(s) {
		freq[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}
