package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNotPointer is returned when the target is not a non-nil pointer to a struct.
	ErrNotPointer = errors.New("config: target must be a non-nil pointer to a struct")
	// ErrParse wraps environment parsing failures.
	ErrParse = errors.New("config: failed to parse environment")
)

var (
	dotenvOnce sync.Once
	cacheMu    sync.Mutex
	cache      = make(map[cacheKey]any)
)

type cacheKey struct {
	typ    reflect.Type
	prefix string
}

// Load populates cfg from environment variables.
// A .env file in the working directory is read once, before the first load;
// variables already set in the environment win over it.
// Each struct type is parsed once; later calls receive the cached value.
func Load(cfg any) error {
	return LoadPrefixed(cfg, "")
}

// MustLoad is Load that panics on error. Intended for program startup.
func MustLoad(cfg any) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// LoadPrefixed is Load with every env tag prefixed, e.g. "CUDATEL_LOCAL_".
// Results are cached per type and prefix.
func LoadPrefixed(cfg any, prefix string) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotPointer
	}

	dotenvOnce.Do(func() {
		// Missing .env is the common case
		_ = godotenv.Load()
	})

	key := cacheKey{typ: rv.Elem().Type(), prefix: prefix}

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		rv.Elem().Set(reflect.ValueOf(cached))
		return nil
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: prefix}); err != nil {
		return errors.Join(ErrParse, fmt.Errorf("%s: %w", key.typ.Name(), err))
	}

	cache[key] = rv.Elem().Interface()
	return nil
}

// Reset clears the cache so the next Load reads the environment again.
func Reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[cacheKey]any)
}
