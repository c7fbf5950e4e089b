package device

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Connection identifies where a display is attached, e.g. "i2c:1",
// "spi:SPI0.0" or "http::8090". A string without a protocol prefix is
// kept whole as the target.
type Connection struct {
	Proto  string
	Target string
}

// ParseConnection splits a "proto:target" string.
func ParseConnection(s string) Connection {
	s = strings.TrimSpace(s)
	proto, target, found := strings.Cut(s, ":")
	if !found || strings.ContainsAny(proto, "/.") {
		return Connection{Target: s}
	}
	return Connection{Proto: strings.ToLower(proto), Target: target}
}

func (c Connection) String() string {
	if c.Proto == "" {
		return c.Target
	}
	return c.Proto + ":" + c.Target
}

// Options holds a parsed "key=value;key=value" display option string.
// Keys are case-insensitive and stored upper-case.
type Options map[string]string

// ParseOptions parses an option string. A key without a value is stored
// as "1" so it reads as an enabled flag.
func ParseOptions(s string) (Options, error) {
	opts := Options{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			return nil, fmt.Errorf("empty option name in %q", part)
		}
		if !found {
			value = "1"
		}
		opts[key] = strings.TrimSpace(value)
	}
	return opts, nil
}

// Int returns the integer value of key, or def when absent.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[strings.ToUpper(key)]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("option %s: invalid integer %q", key, v)
	}
	return n, nil
}

// Bool returns the boolean value of key, or def when absent. It accepts
// the strconv forms plus on/off and yes/no.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[strings.ToUpper(key)]
	if !ok {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("option %s: invalid boolean %q", key, v)
	}
	return b, nil
}

// String returns the value of key, or def when absent.
func (o Options) String(key, def string) string {
	if v, ok := o[strings.ToUpper(key)]; ok {
		return v
	}
	return def
}

// Encode renders the options back into the canonical string form.
func (o Options) Encode() string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+o[k])
	}
	return strings.Join(parts, ";")
}

// OptionSet is a small named-integer option store for bindings.
type OptionSet struct {
	values map[string]int64
}

// NewOptionSet creates a store seeded with defaults.
func NewOptionSet(defaults map[string]int64) *OptionSet {
	s := &OptionSet{values: make(map[string]int64, len(defaults))}
	for k, v := range defaults {
		s.values[strings.ToUpper(k)] = v
	}
	return s
}

func (s *OptionSet) IsOption(name string) bool {
	_, ok := s.values[strings.ToUpper(name)]
	return ok
}

func (s *OptionSet) Option(name string) (int64, bool) {
	v, ok := s.values[strings.ToUpper(name)]
	return v, ok
}

// SetOption stores value. Unknown names are ignored.
func (s *OptionSet) SetOption(name string, value int64) {
	name = strings.ToUpper(name)
	if _, ok := s.values[name]; ok {
		s.values[name] = value
	}
}
