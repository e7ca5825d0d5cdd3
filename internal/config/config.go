package config

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/viper"
)

func setViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")
	viper.SetDefault("port", 3000)
	viper.SetDefault("allowedorigin", "")
	viper.SetDefault("staticdir", "")
}

// LoadConfig reads the config file into the global viper instance.
// A missing file is fine; the defaults above apply, and every key can be
// overridden from the environment (e.g. PORT).
func LoadConfig(configFilePath string) {
	setViperDefaults()
	viper.AutomaticEnv()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("no config file found", "configFilePath", configFilePath)
		} else if errors.Is(err, os.ErrNotExist) {
			slog.Info("no config file found", "configFilePath", configFilePath)
		} else {
			slog.Error("error during config read", "err", err)
			panic(err)
		}
	}
}

// ConfigureLogger configures the default slog logger from the loglevel and
// logfile config keys.
//
// Valid log levels are "none", "error", "warn", "info", "debug". logfile may
// specify a file path (JSON logs) or be empty, in which case text logs go to
// stdout.
//
// Returns the os.File pointer that slog writes to, so it may be gracefully
// shut:
//
//	logFilePointer := config.ConfigureLogger()
//	if logFilePointer != nil {
//		defer logFilePointer.Close()
//	}
func ConfigureLogger() (*os.File, error) {
	var loggerOptions slog.HandlerOptions

	switch viper.GetString("loglevel") {
	case "none":
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	case "error":
		loggerOptions.Level = slog.LevelError
	case "warn":
		loggerOptions.Level = slog.LevelWarn
	case "info":
		loggerOptions.Level = slog.LevelInfo
	case "debug":
		loggerOptions.Level = slog.LevelDebug
	default:
		return nil, errors.New("unexpected log level")
	}

	logFile := viper.GetString("logfile")
	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &loggerOptions)))
		return nil, nil
	}

	logFilePointer, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logFilePointer, &loggerOptions)))
	return logFilePointer, nil
}
