package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// SetDefaults registers every mapstructure key of conf with v, using the
// value from defaults when present and the zero value otherwise. Keys must
// be known to viper for AutomaticEnv to apply during Unmarshal.
func SetDefaults(v *viper.Viper, conf any, defaults map[string]any) {
	for _, key := range structKeys(reflect.TypeOf(conf)) {
		if _, ok := defaults[key]; !ok {
			v.SetDefault(key, nil)
		}
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func structKeys(t reflect.Type) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("mapstructure")
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		keys = append(keys, name)
	}
	return keys
}
