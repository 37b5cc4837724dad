// Package config provides shared configuration handling for zblock's
// tunable parameter surface, registered as cobra flags and bound through
// viper so they can also be set via config file or environment.
package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ConfigFile = "config"

	loggingKey = "logging"

	LogDestination = loggingKey + ".destination"
	LogEncoding    = loggingKey + ".encoding"
	LogLevel       = loggingKey + ".level"

	tunableKey = "tunable"

	Lz4Pass        = tunableKey + ".lz4_pass"
	ZstdPass       = tunableKey + ".zstd_pass"
	FirstpassMode  = tunableKey + ".firstpass_mode"
	CutoffLevel    = tunableKey + ".cutoff_level"
	AbortSize      = tunableKey + ".abort_size"
	HardMoed       = tunableKey + ".hard_moed"
	Lz4ShiftSize   = tunableKey + ".lz4_shift_size"
	EaDivisionMode = tunableKey + ".ea_division_mode"
	EaDivisor      = tunableKey + ".ea_divisor"
	EaLevelFactor  = tunableKey + ".ea_level_factor"
)

// Global defaults, mirroring the tunable parameter surface's stated
// defaults.
const (
	DefaultLogEncoding = "logfmt"
	DefaultLogLevel    = "info"

	DefaultLz4Pass       = true
	DefaultZstdPass      = true
	DefaultFirstpassMode = 1
	DefaultCutoffLevel   = 3
	DefaultAbortSize     = 131072
	DefaultHardMoed      = 0
	DefaultLz4ShiftSize  = 3

	// The scaled-abort formula is gated off by default; implementations
	// MUST preserve the parameter surface but MAY leave it disabled.
	DefaultEaDivisionMode = false
	DefaultEaDivisor      = 2
	DefaultEaLevelFactor  = 1
)

// RegisterFlags registers every command line flag backing the
// configuration, binding each to viper so Tunables can read it back.
func RegisterFlags(cmd *cobra.Command) error {
	pflags := cmd.PersistentFlags()

	pflags.StringP(ConfigFile, "c", "", "path to configuration file")

	pflags.String(LogLevel, DefaultLogLevel, "log level for logger")
	pflags.String(LogEncoding, DefaultLogEncoding, "message encoding format for logger")
	pflags.String(LogDestination, "", "logging destination file path (empty for stdout)")

	pflags.Bool(Lz4Pass, DefaultLz4Pass, "enable the lz4 first probe")
	pflags.Bool(ZstdPass, DefaultZstdPass, "enable the zstd second probe")
	pflags.Int(FirstpassMode, DefaultFirstpassMode, "probe level selector: 1, 2, or 3 (tuned)")
	pflags.Int32(CutoffLevel, DefaultCutoffLevel, "minimum fs_level at which probing is enabled")
	pflags.Int64(AbortSize, DefaultAbortSize, "baseline abort threshold T in bytes")
	pflags.Int(HardMoed, DefaultHardMoed, "override mode; >0 forces committed compress regardless of probe outcome")
	pflags.Uint(Lz4ShiftSize, DefaultLz4ShiftSize, "right-shift used to derive the lz4 probe target from src_len")
	pflags.Bool(EaDivisionMode, DefaultEaDivisionMode, "enable scaling of the abort threshold by level (gated, off by default)")
	pflags.Int(EaDivisor, DefaultEaDivisor, "divisor applied to T for every ea_level_factor levels above cutoff_level")
	pflags.Int(EaLevelFactor, DefaultEaLevelFactor, "number of levels above cutoff_level per division step")

	return viper.BindPFlags(pflags)
}

// Tunables is the parameter surface CompressPath consults on every call.
// LoadTunables reads it from viper once into a plain value; an Adapter holds
// that snapshot and replaces it wholesale through SetTunables, which is what
// makes the surface runtime-mutable.
type Tunables struct {
	Lz4Pass        bool
	ZstdPass       bool
	FirstpassMode  int
	CutoffLevel    int32
	AbortSize      int64
	HardMoed       int
	Lz4ShiftSize   uint
	EaDivisionMode bool
	EaDivisor      int
	EaLevelFactor  int
}

// DefaultTunables returns the parameter surface's documented defaults,
// usable without a bound viper instance (e.g. in tests).
func DefaultTunables() Tunables {
	return Tunables{
		Lz4Pass:        DefaultLz4Pass,
		ZstdPass:       DefaultZstdPass,
		FirstpassMode:  DefaultFirstpassMode,
		CutoffLevel:    DefaultCutoffLevel,
		AbortSize:      DefaultAbortSize,
		HardMoed:       DefaultHardMoed,
		Lz4ShiftSize:   DefaultLz4ShiftSize,
		EaDivisionMode: DefaultEaDivisionMode,
		EaDivisor:      DefaultEaDivisor,
		EaLevelFactor:  DefaultEaLevelFactor,
	}
}

// LoadTunables reads the tunable parameter surface from a bound viper
// instance, falling back to defaults for anything unset.
func LoadTunables(v *viper.Viper) Tunables {
	t := DefaultTunables()
	if v == nil {
		return t
	}
	if v.IsSet(Lz4Pass) {
		t.Lz4Pass = v.GetBool(Lz4Pass)
	}
	if v.IsSet(ZstdPass) {
		t.ZstdPass = v.GetBool(ZstdPass)
	}
	if v.IsSet(FirstpassMode) {
		t.FirstpassMode = v.GetInt(FirstpassMode)
	}
	if v.IsSet(CutoffLevel) {
		t.CutoffLevel = v.GetInt32(CutoffLevel)
	}
	if v.IsSet(AbortSize) {
		t.AbortSize = v.GetInt64(AbortSize)
	}
	if v.IsSet(HardMoed) {
		t.HardMoed = v.GetInt(HardMoed)
	}
	if v.IsSet(Lz4ShiftSize) {
		t.Lz4ShiftSize = uint(v.GetInt(Lz4ShiftSize))
	}
	if v.IsSet(EaDivisionMode) {
		t.EaDivisionMode = v.GetBool(EaDivisionMode)
	}
	if v.IsSet(EaDivisor) {
		t.EaDivisor = v.GetInt(EaDivisor)
	}
	if v.IsSet(EaLevelFactor) {
		t.EaLevelFactor = v.GetInt(EaLevelFactor)
	}
	return t
}
