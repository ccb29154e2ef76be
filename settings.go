package crucible

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings supplies values for constructor arguments registered with
// WithSetting or WithFieldSetting. Implementations must be safe for
// concurrent use once resolution starts.
type Settings interface {
	Lookup(key string) (string, bool)
}

// MapSettings is an in-memory Settings source, mostly useful in tests and
// small programs.
type MapSettings map[string]string

func (s MapSettings) Lookup(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

type envSettings struct{}

func (envSettings) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// EnvSettings is a Settings source backed by the process environment.
// Any given files are loaded with godotenv first; a missing file is not an
// error, the environment may simply be populated by the host.
func EnvSettings(files ...string) Settings {
	if len(files) > 0 {
		_ = godotenv.Load(files...)
	}

	return envSettings{}
}

func convertSetting(raw string, t reflect.Type) (reflect.Value, error) {
	if t == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return reflect.Value{}, err
		}

		return reflect.ValueOf(d), nil
	}

	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(t), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return reflect.Value{}, err
		}

		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}

		return reflect.ValueOf(i).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}

		return reflect.ValueOf(u).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}

		return reflect.ValueOf(f).Convert(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("settings cannot be converted to %s", t)
	}
}
