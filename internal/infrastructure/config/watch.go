package config

import (
	"errors"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Watch reloads the config file on change and passes each valid result to
// apply. Invalid edits are logged and ignored. It is a no-op when no config
// file is present.
func Watch(configPath string, logger *zap.Logger, apply func(*Config)) error {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	log := logger.Named("config")
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			log.Warn("Ignoring invalid configuration change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		log.Info("Configuration reloaded", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		apply(cfg)
	})
	v.WatchConfig()

	log.Info("Watching configuration file", zap.String("file", v.ConfigFileUsed()))
	return nil
}
