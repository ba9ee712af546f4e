package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func String(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// PositiveInt is Int that also falls back on zero or negative values.
func PositiveInt(name string, def int) int {
	if n := Int(name, def); n > 0 {
		return n
	}
	return def
}

func Bool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// Seconds reads a whole number of seconds; negative values clamp to zero.
func Seconds(name string, def int) time.Duration {
	return time.Duration(max(Int(name, def), 0)) * time.Second
}

func Millis(name string, def int) time.Duration {
	return time.Duration(max(Int(name, def), 0)) * time.Millisecond
}

// Backoff doubles base per attempt, capped at limit when limit is set.
func Backoff(base, limit time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	sleep := base
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if limit > 0 && sleep >= limit {
			return limit
		}
	}
	if limit > 0 && sleep > limit {
		return limit
	}
	return sleep
}
