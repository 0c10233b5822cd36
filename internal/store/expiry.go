package store

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ParseExpiry converts a raw expiry such as "60" or "60s-ish" into a duration.
// Only the leading base-10 integer is considered. Anything that does not
// start with a positive integer yields zero, which means no expiry.
func ParseExpiry(raw string) time.Duration {
	s := strings.TrimLeft(raw, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if errors.Is(err, strconv.ErrRange) && s[0] != '-' {
		n, err = maxExpirySeconds, nil
	}
	if err != nil || n <= 0 {
		return 0
	}
	if n > maxExpirySeconds {
		n = maxExpirySeconds
	}
	return time.Duration(n) * time.Second
}

const maxExpirySeconds = int64(^uint64(0)>>1) / int64(time.Second)
