// Package config loads typed configuration from environment variables.
//
// A .env file is loaded on first use and caarlos0/env parses variables into
// struct fields. Each configuration type is parsed once and cached:
//
//	type Config struct {
//		Env     string        `env:"CUDATEL_ENV" envDefault:"local"`
//		Timeout time.Duration `env:"CUDATEL_TIMEOUT" envDefault:"30s"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// LoadPrefixed reads the same struct under a different prefix, which is how
// per-environment profiles are selected:
//
//	type Profile struct {
//		Host string `env:"HOST"`
//	}
//
//	var p Profile
//	config.LoadPrefixed(&p, "CUDATEL_LOCAL_") // reads CUDATEL_LOCAL_HOST
//
// Reset drops the cache; tests use it after changing the environment.
package config
