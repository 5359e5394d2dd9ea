package config

import (
	"bytes"
	"strings"

	"github.com/amine-amaach/uatypegen/internal/component"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment overrides, as in UATYPEGEN_OUTPUT_DIR.
const EnvPrefix = "UATYPEGEN"

type Cfg struct {
	Input   component.Input   `mapstructure:"input"`
	Output  component.Output  `mapstructure:"output"`
	Logger  component.Logger  `mapstructure:"logger"`
	Metrics component.Metrics `mapstructure:"metrics"`
}

var defaultConfig = []byte(`
{
	"input": {
		"files": [],
		"intrinsics": true
	},

	"output": {
		"dir": "./uatypes",
		"package": "uatypes",
		"manifest": true,
		"prune": false
	},

	"logger": {
		"level": "INFO",
		"format": "TEXT",
		"disable_timestamp": false
	},

	"metrics": {
		"enabled": false,
		"textfile": ""
	}
}
`)

// GetConfigs reads config.json from path, or from the usual locations when
// path is empty. The defaults fill every key the file leaves out and the
// environment overrides both.
func GetConfigs(path string, logger *logrus.Logger) (Cfg, error) {
	var configs Cfg
	v := viper.New()

	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		return configs, errors.Wrap(err, "reading default configs")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs/")
		v.AddConfigPath("./internal/config/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			logger.Debugln("Config file not found, using default configs 🔔")
		} else {
			return configs, errors.Wrap(err, "reading config file")
		}
	} else {
		logger.WithField("File", v.ConfigFileUsed()).Debugln("Config file found")
	}

	if err := v.Unmarshal(&configs); err != nil {
		return configs, errors.Wrap(err, "unable to unmarshal configs")
	}
	return configs, nil
}
