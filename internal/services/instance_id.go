package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	instanceIDDateLayout = "020106"
	instanceSeqDigits    = 4
)

// NextInstanceID returns DDMMYY followed by a four digit sequence, one past
// the highest sequence among existing ids that share today's prefix.
func NextInstanceID(now time.Time, existing []string) string {
	prefix := now.Format(instanceIDDateLayout)
	highest := 0
	for _, id := range existing {
		suffix, ok := strings.CutPrefix(id, prefix)
		if !ok || len(suffix) < instanceSeqDigits {
			continue
		}
		seq, err := strconv.Atoi(suffix)
		if err != nil || seq < 0 {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, instanceSeqDigits, highest+1)
}
