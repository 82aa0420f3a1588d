package main

import (
	"reflect"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/mitchellh/mapstructure"
	"github.com/zircuit-labs/zkr-go-common/xerrors/stacktrace"

	"github.com/zircuit-labs/l2-tracecache/core/replay"
	"github.com/zircuit-labs/l2-tracecache/core/txindex"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers"
	"github.com/zircuit-labs/l2-tracecache/internal/duration"
	"github.com/zircuit-labs/l2-tracecache/internal/tracelog"
)

const envPrefix = "TRACECACHE_"

type HTTPConfig struct {
	Addr              string            `koanf:"addr"`
	CORSOrigins       []string          `koanf:"cors_origins"`
	WSEnabled         bool              `koanf:"ws_enabled"`
	ReadHeaderTimeout duration.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   duration.Duration `koanf:"shutdown_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// Config is the whole service configuration.
type Config struct {
	HTTP     HTTPConfig      `koanf:"http"`
	Metrics  MetricsConfig   `koanf:"metrics"`
	Log      tracelog.Config `koanf:"log"`
	Upstream replay.Config   `koanf:"upstream"`
	TxIndex  txindex.Config  `koanf:"txindex"`
	Tracers  tracers.Config  `koanf:"tracers"`
}

func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              "127.0.0.1:8547",
			CORSOrigins:       []string{"*"},
			ReadHeaderTimeout: duration.Seconds(10),
			ShutdownTimeout:   duration.Seconds(10),
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:6060",
		},
		Log:      tracelog.DefaultConfig,
		Upstream: replay.DefaultConfig(),
		Tracers:  tracers.DefaultConfig(),
	}
}

// LoadConfig layers, from lowest to highest priority: defaults, the
// optional TOML or YAML file, TRACECACHE_* environment variables and
// overrides. Nested keys use "__" in variable names, for example
// TRACECACHE_TRACERS__MAX_PERMITS.
func LoadConfig(path string, environ []string, overrides map[string]any) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, stacktrace.Wrap(err)
	}

	if path != "" {
		var parser koanf.Parser = toml.Parser()
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			parser = yaml.Parser()
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, stacktrace.Wrap(err)
		}
	}

	if err := k.Load(confmap.Provider(envValues(environ), "."), nil); err != nil {
		return Config{}, stacktrace.Wrap(err)
	}
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return Config{}, stacktrace.Wrap(err)
		}
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				secondsHook,
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return Config{}, stacktrace.Wrap(err)
	}
	return cfg, nil
}

// envValues maps TRACECACHE_A__B_C=v onto the key a.b_c.
func envValues(environ []string) map[string]any {
	values := make(map[string]any)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) {
			continue
		}
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		values[strings.ReplaceAll(key, "__", ".")] = value
	}
	return values
}

var durationType = reflect.TypeOf(duration.Duration(0))

// secondsHook reads bare numbers as seconds. Strings go through
// duration.Duration's text decoding.
func secondsHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return duration.Duration(time.Duration(reflect.ValueOf(data).Int()) * time.Second), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return duration.Seconds(reflect.ValueOf(data).Uint()), nil
	case reflect.Float32, reflect.Float64:
		return duration.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
	}
	return data, nil
}
