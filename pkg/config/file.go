package config

import (
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// applyFile overlays a YAML configuration file on top of the already loaded
// environment configuration. Only keys present in the file are overridden.
func applyFile(logger *logrus.Logger, config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return err
	}

	logger.WithField("path", path).Info("Applied configuration file")
	return nil
}
