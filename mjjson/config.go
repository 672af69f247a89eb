package mjjson

import (
	"strings"

	"github.com/xoplog/microjson/mjnum"
	"github.com/xoplog/microjson/mjutil/mjversion"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type TimestampMode int

const (
	SystemClock TimestampMode = iota
	Disabled
)

func (m TimestampMode) String() string {
	switch m {
	case SystemClock:
		return "system"
	case Disabled:
		return "disabled"
	}
	return "invalid"
}

func (m TimestampMode) MarshalText() ([]byte, error) {
	if m != SystemClock && m != Disabled {
		return nil, errors.Errorf("invalid timestamp mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *TimestampMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "system", "systemclock", "system_clock":
		*m = SystemClock
	case "disabled", "none", "off":
		*m = Disabled
	default:
		return errors.Errorf("timestamp must be \"system\" or \"disabled\", not %q", string(text))
	}
	return nil
}

// Config is the set of output toggles. A Layer copies its Config
// when it is built and never changes it afterwards.
type Config struct {
	IncludeTarget     bool          `toml:"include_target"`
	IncludeFile       bool          `toml:"include_file"`
	IncludeLineNumber bool          `toml:"include_line_number"`
	IncludeThreadID   bool          `toml:"include_thread_id"`
	IncludeThreadName bool          `toml:"include_thread_name"`
	FlattenEvent      bool          `toml:"flatten_event"`
	Timestamp         TimestampMode `toml:"timestamp"`

	// CurrentSpan adds "span": the innermost span's name and fields.
	CurrentSpan bool `toml:"current_span"`
	// SpanList adds "spans": every entered span, root first.
	SpanList bool `toml:"span_list"`
	// Source, when set, is written as "source". A trailing version
	// ("app 1.2.3", "app-v1.2.3") is normalized.
	Source string `toml:"source"`
	// MinLevel drops events below it.
	MinLevel mjnum.Level `toml:"min_level"`
}

func DefaultConfig() Config {
	return Config{
		IncludeTarget: true,
		Timestamp:     SystemClock,
		MinLevel:      mjnum.TraceLevel,
	}
}

func (c Config) Validate() error {
	switch c.Timestamp {
	case SystemClock, Disabled:
	default:
		return errors.Errorf("invalid timestamp mode %d", int(c.Timestamp))
	}
	if c.MinLevel < mjnum.TraceLevel || c.MinLevel > mjnum.MaxLevel {
		return errors.Wrapf(mjnum.ErrUnknownLevel, "min_level %d", int32(c.MinLevel))
	}
	if _, err := mjversion.Parse(c.Source); err != nil {
		return errors.Wrap(err, "source")
	}
	return nil
}

// LoadConfigFile reads a TOML file. Keys that are not present
// keep their DefaultConfig values. Unknown keys are an error.
func LoadConfigFile(path string) (Config, error) {
	c := DefaultConfig()
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return c, errors.Wrapf(err, "load layer config %s", path)
	}
	return c, checkDecoded(md, c, path)
}

// ParseConfig is LoadConfigFile for TOML that is already in memory.
func ParseConfig(text string) (Config, error) {
	c := DefaultConfig()
	md, err := toml.Decode(text, &c)
	if err != nil {
		return c, errors.Wrap(err, "parse layer config")
	}
	return c, checkDecoded(md, c, "config")
}

func checkDecoded(md toml.MetaData, c Config, where string) error {
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.Errorf("unknown keys in %s: %s", where, strings.Join(keys, ", "))
	}
	return errors.Wrapf(c.Validate(), "invalid %s", where)
}
