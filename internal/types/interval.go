package types

import (
	"strconv"
	"strings"
	"time"

	"github.com/riptide-labs/riptide/pkg/errors"
)

// ParseInterval parses a bar interval string like "1m", "1h" or "4h" into a
// duration. The "d" suffix is accepted for daily bars.
func ParseInterval(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New(errors.ErrCodeInvalidInterval, "interval must not be empty")
	}

	unit := s[len(s)-1:]
	value, err := strconv.Atoi(strings.TrimSuffix(s, unit))

	if err != nil || value <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval %q", s)
	}

	switch unit {
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval unit %q", unit)
	}
}
