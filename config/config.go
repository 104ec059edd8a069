package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Driver string
		URL    string
	}
	Server struct {
		Port       int
		CORSOrigin string
	}
	Uploads struct {
		Dir string
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Default values
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.corsorigin", "http://localhost:3000")
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("uploads.dir", "./uploads")

	if err := viper.ReadInConfig(); err != nil {
		// Defaults are enough to run with sqlite; only a malformed
		// config file is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
