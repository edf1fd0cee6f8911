// Package envutil fills configuration structs from environment variables
// and optional .env files, without modifying the process environment.
package envutil

import (
	"errors"
	"maps"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParse is returned when the environment cannot be parsed into a config struct.
var ErrParse = errors.New("failed to parse environment")

type options struct {
	files       []string
	environment map[string]string
	prefix      string
}

// Option configures Parse.
type Option func(*options)

// WithFiles layers .env files under the environment. Variables already set
// in the environment win over values from the files; later files win over
// earlier ones.
func WithFiles(paths ...string) Option {
	return func(o *options) {
		o.files = append(o.files, paths...)
	}
}

// WithEnvironment uses vars instead of the process environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *options) {
		o.environment = vars
	}
}

// WithPrefix prepends prefix to every variable name looked up.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// Parse fills a T from `env` and `envDefault` struct tags.
//
// Example:
//
//	type Config struct {
//		JSON  bool       `env:"LOG_JSON"  envDefault:"false"`
//		Level slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
//	}
//
//	cfg, err := envutil.Parse[Config](envutil.WithFiles(".env"))
func Parse[T any](opts ...Option) (T, error) {
	var (
		cfg T
		o   options
	)

	for _, opt := range opts {
		opt(&o)
	}

	environment := maps.Clone(o.environment)
	if environment == nil {
		environment = env.ToMap(os.Environ())
	}

	if len(o.files) > 0 {
		fromFiles, err := godotenv.Read(o.files...)
		if err != nil {
			return cfg, errors.Join(ErrParse, err)
		}

		for k, v := range fromFiles {
			if _, set := environment[k]; !set {
				environment[k] = v
			}
		}
	}

	err := env.ParseWithOptions(&cfg, env.Options{
		Environment: environment,
		Prefix:      o.prefix,
	})
	if err != nil {
		return cfg, errors.Join(ErrParse, err)
	}

	return cfg, nil
}
