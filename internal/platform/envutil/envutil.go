// Package envutil reads typed settings from the environment. Every reader
// falls back to its default when the variable is unset or unparsable.
package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func lookup(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

func parsed[T any](name string, def T, parse func(string) (T, error)) T {
	raw, ok := lookup(name)
	if !ok {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func String(name, def string) string {
	if v, ok := lookup(name); ok {
		return v
	}
	return def
}

func Int(name string, def int) int {
	return parsed(name, def, strconv.Atoi)
}

func Int64(name string, def int64) int64 {
	return parsed(name, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

func Float(name string, def float64) float64 {
	return parsed(name, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func Bool(name string, def bool) bool {
	raw, _ := lookup(name)
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// Duration accepts Go duration strings ("250ms", "2h"). A bare integer is
// read in unit, which defaults to seconds.
func Duration(name string, def time.Duration, unit time.Duration) time.Duration {
	if unit <= 0 {
		unit = time.Second
	}
	return parsed(name, def, func(s string) (time.Duration, error) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(n) * unit, nil
		}
		return time.ParseDuration(s)
	})
}

// List splits a comma separated value and drops empty items.
func List(name string) []string {
	raw, _ := lookup(name)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
