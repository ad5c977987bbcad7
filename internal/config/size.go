package config

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize parses a human readable size such as "10m", "512k", "1.5GiB" or
// "4096". Single letter units (k, m, g, t, p) are binary, so "10m" is 10 MiB.
// Other units follow go-humanize: "10MB" is 10^7 bytes, "10MiB" is 10*2^20.
func ParseSize(s string) (int64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return 0, fmt.Errorf("config: empty size")
	}
	switch v[len(v)-1] {
	case 'k', 'm', 'g', 't', 'p':
		v += "ib"
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid size %q: %w", s, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("config: size %q out of range", s)
	}
	return int64(n), nil
}
