// Package util provides common utility functions used across the codebase.
package util

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// JoinOrNone joins strings with ", " or returns "(none)" for empty slices.
func JoinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// Pluralize returns singular if count is 1, otherwise plural.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// Bytes formats a byte count with binary units, e.g. "1.5 GiB".
func Bytes(n uint64) string {
	return humanize.IBytes(n)
}

// Rate formats a per-second byte rate, e.g. "12 KiB/s".
func Rate(bytesPerSecond float64) string {
	if bytesPerSecond < 0 {
		bytesPerSecond = 0
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}
