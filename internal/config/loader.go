package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/nanobot-ai/memory/internal/errs"
)

// EnvPrefix is the prefix environment overrides must carry
// (e.g. NANOBOT_MEMORY_CAPTURE_MINCONFIDENCE).
const EnvPrefix = "NANOBOT_MEMORY_"

const delimiter = "."

// Loader loads Config from defaults, an optional JSON file, and env vars,
// in that priority order (low to high), grounded on necyber-goclaw's
// koanf-based config.Loader.
type Loader struct {
	k *koanf.Koanf
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{k: koanf.New(delimiter)}
}

// Load builds a validated Config. configPath may be empty, in which case no
// file is read and only defaults + environment apply.
func Load(configPath string) (*Config, error) {
	l := NewLoader()

	defaults := Default()
	if err := l.k.Load(confmap.Provider(structToMap(defaults, ""), delimiter), nil); err != nil {
		return nil, errs.New(errs.KindConfigInvalid, fmt.Errorf("load defaults: %w", err))
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, errs.New(errs.KindConfigInvalid, fmt.Errorf("config file %s: %w", configPath, err))
		}
		if err := l.k.Load(file.Provider(configPath), json.Parser()); err != nil {
			return nil, errs.New(errs.KindConfigInvalid, fmt.Errorf("parse config file: %w", err))
		}
		if err := checkUnknownKeys(l.k, defaults); err != nil {
			return nil, err
		}
	}

	if err := l.k.Load(env.ProviderWithValue(EnvPrefix, delimiter, func(s, v string) (string, interface{}) {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		key = strings.ReplaceAll(key, "_", delimiter)
		return key, v
	}), nil); err != nil {
		return nil, errs.New(errs.KindConfigInvalid, fmt.Errorf("load env: %w", err))
	}

	var cfg Config
	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errs.New(errs.KindConfigInvalid, fmt.Errorf("unmarshal: %w", err))
	}

	cfg.Memory.DBPath = expandHome(cfg.Memory.DBPath)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// checkUnknownKeys rejects any top-level section key (memory/recall/...)
// or leaf field the default configuration doesn't know about, per §6's
// "Unknown keys are reported at load time."
func checkUnknownKeys(k *koanf.Koanf, defaults Config) error {
	known := knownKeys(defaults, "")
	var bad []string
	for _, key := range k.Keys() {
		if !known[key] {
			bad = append(bad, key)
		}
	}
	if len(bad) > 0 {
		var cerrs errs.ConfigErrors
		for _, b := range bad {
			cerrs = append(cerrs, errs.ConfigError{Field: b, Message: "unknown configuration key"})
		}
		return errs.New(errs.KindConfigInvalid, cerrs)
	}
	return nil
}

func knownKeys(v interface{}, prefix string) map[string]bool {
	out := map[string]bool{}
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return out
	}
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		key := field.Tag.Get("koanf")
		if key == "" || key == "-" {
			continue
		}
		full := key
		if prefix != "" {
			full = prefix + delimiter + key
		}
		fv := val.Field(i)
		if fv.Kind() == reflect.Struct {
			for k := range knownKeys(fv.Interface(), full) {
				out[k] = true
			}
			continue
		}
		out[full] = true
	}
	return out
}

// structToMap flattens a config struct into a flat map keyed by
// dot-joined "koanf" tags, which confmap.Provider unflattens on load.
func structToMap(v interface{}, prefix string) map[string]interface{} {
	out := map[string]interface{}{}
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return out
	}
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		key := field.Tag.Get("koanf")
		if key == "" || key == "-" {
			continue
		}
		full := key
		if prefix != "" {
			full = prefix + delimiter + key
		}
		fv := val.Field(i)
		if fv.Kind() == reflect.Struct {
			nested := structToMap(fv.Interface(), full)
			for k, nv := range nested {
				out[k] = nv
			}
			continue
		}
		out[full] = fv.Interface()
	}
	return out
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
