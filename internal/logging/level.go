package logging

import (
	"strings"

	"log/slog"
)

// Encoding selects the wire format used when rendering log records
type Encoding int

// Enumeration of supported log encodings
const (
	EncodingUnknown Encoding = iota
	EncodingJSON
	EncodingLogfmt
	EncodingPlain
)

// String implements the Stringer interface
func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingLogfmt:
		return "logfmt"
	case EncodingPlain:
		return "plain"
	default:
		return "unknown"
	}
}

// EncodingFromString maps a configuration string to an Encoding, defaulting to logfmt
// for an empty string and EncodingUnknown for anything unrecognized
func EncodingFromString(s string) Encoding {
	switch strings.ToLower(s) {
	case "json":
		return EncodingJSON
	case "logfmt", "":
		return EncodingLogfmt
	case "plain":
		return EncodingPlain
	default:
		return EncodingUnknown
	}
}

// LevelUnknown signals that a level string could not be parsed
const LevelUnknown = slog.Level(99)

// LevelFromString maps a configuration string (as accepted by slog.Level.UnmarshalText,
// plus the "fatal" / "panic" extensions) to a Level
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "fatal":
		return LevelFatal
	case "panic":
		return LevelPanic
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return LevelUnknown
	}
	return l
}
