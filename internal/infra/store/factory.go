package store

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// New creates the store backend named by storeType.
func New(storeType string, settings map[string]any) (Store, error) {
	switch storeType {
	case "memory", "":
		zlog.Info().Msg("using in-memory session store")
		return NewMemory(), nil

	case "sqlite":
		var cfg SQLConfig
		if err := mapstructure.Decode(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode settings")
		}
		if err := defaults.Set(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to set defaults")
		}
		if err := validator.New().Struct(cfg); err != nil {
			return nil, errors.Wrap(err, "validation failed")
		}
		zlog.Info().Msgf("using sqlite session store: dsn=%s", cfg.DSN)
		s, err := NewSQL(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, errors.Newf("unsupported store type: %s", storeType)
	}
}
