package settings

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ReadConfig loads configPath (TOML, or YAML by extension) when it is not
// empty, overlays the environment and fills defaults.
func ReadConfig(configPath string) (*Config, error) {
	var config Config
	if configPath != "" {
		if err := decodeFile(configPath, &config); err != nil {
			return nil, err
		}
	}
	if err := overlayEnv(&config, os.LookupEnv); err != nil {
		return nil, err
	}
	config.fixme()
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return &config, nil
}

func decodeFile(configPath string, config *Config) error {
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(configPath)
		if err != nil {
			return errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return errors.Wrap(err, "parse yaml config")
		}
	default:
		if _, err := toml.DecodeFile(configPath, config); err != nil {
			return errors.Wrap(err, "parse toml config")
		}
	}
	return nil
}

func overlayEnv(c *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"CAMERA_IP":        &c.Camera.Host,
		"CAMERA_USER":      &c.Camera.User,
		"CAMERA_PASS":      &c.Camera.Pass,
		"SNAPSHOT_PATH":    &c.Camera.SnapshotPath,
		"HTTP_SERVER_HOST": &c.HTTP.Host,
		"RTSP_USERNAME":    &c.RTSP.User,
		"RTSP_PASSWORD":    &c.RTSP.Pass,
		"RTSP_STREAM_PATH": &c.RTSP.StreamPath,
		"LOG_LEVEL":        &c.Logger.Level,
	}
	for key, dst := range strs {
		if val, ok := lookup(key); ok && val != "" {
			*dst = val
		}
	}
	ints := map[string]*int{
		"HTTP_SERVER_PORT": &c.HTTP.Port,
		"RTSP_SERVER_PORT": &c.RTSP.Port,
	}
	for key, dst := range ints {
		val, ok := lookup(key)
		if !ok || val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrapf(err, "env %s", key)
		}
		*dst = n
	}
	return nil
}
