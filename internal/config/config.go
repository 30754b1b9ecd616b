// Package config loads widget settings files.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. LOCATOR_ZOOM.
const EnvPrefix = "LOCATOR"

type kind int

const (
	text kind = iota
	number
	integer
	flag
)

// Keys that may be overridden from the environment, with the type their
// string value is converted to.
var envKeys = map[string]kind{
	"latitude":              number,
	"longitude":             number,
	"zoom":                  integer,
	"mapProvider":           text,
	"searchProvider":        text,
	"paginationProvider":    text,
	"autocompleteProvider":  text,
	"credentials":           text,
	"icon":                  text,
	"geolocateOnStart":      flag,
	"alwaysDisplayDistance": flag,
	"pageSize":              integer,
}

// Load reads a YAML, JSON or TOML settings file into a map suitable for
// locator.WithBaseSettings. An empty path reads only the environment.
//
// Keys come back lower-cased; settings decoding matches them without regard
// to case. Locations belong in a source file: a locations key is dropped
// because record payload keys are case sensitive.
func Load(path string) (map[string]any, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	settings := v.AllSettings()
	delete(settings, "locations")
	for k, kd := range envKeys {
		key := strings.ToLower(k)
		if _, ok := settings[key]; !ok {
			continue
		}
		switch kd {
		case number:
			settings[key] = v.GetFloat64(k)
		case integer:
			settings[key] = v.GetInt(k)
		case flag:
			settings[key] = v.GetBool(k)
		}
	}
	return settings, nil
}
