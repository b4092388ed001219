package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/rest"

	"github.com/go-playground/validator/v10"
)

type ConfigFile struct {
	Token               string `validate:"required"`
	APIURL              string `validate:"required,url"`
	LogLevel            string `validate:"oneof=debug info warn error"`
	LogToFile           bool
	MessageCacheSize    int `validate:"gte=1"`
	MaxMissedHeartbeats int `validate:"gte=0"`
	SelfContained       bool
	Archive             bool
	DbUser              string
	DbPassword          string
	DbAddress           string `validate:"required_if=SelfContained false Archive true"`
	DbPort              string
	DbDatabase          string `validate:"required_if=SelfContained false Archive true"`
	SqlitePath          string
	RedisAddress        string `validate:"required_if=SelfContained false"`
	RedisPassword       string
	RedisChannel        string
	StatusAddress       string `validate:"omitempty,hostname_port"`
}

func defaults() ConfigFile {
	return ConfigFile{
		APIURL:              rest.DefaultBaseURL,
		LogLevel:            "info",
		MessageCacheSize:    models.DefaultMessageCacheSize,
		MaxMissedHeartbeats: 3,
		SelfContained:       true,
		DbPort:              "3306",
		SqlitePath:          "./archive.db",
		RedisChannel:        "chatapp-gateway",
	}
}

// Read loads the config file at path. Fields missing from the file keep
// their defaults.
func Read(path string) (ConfigFile, error) {
	cfg := defaults()

	configFile, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(bytes, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("error parsing %s: %w", path, err)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg *ConfigFile) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.Struct(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
