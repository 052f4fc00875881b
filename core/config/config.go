package config

import (
	_ "embed"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/bshell/core/proc"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
)

// Policies for background requests that arrive when the job table is full.
const (
	PolicyForeground = "foreground"
	PolicyReject     = "reject"
)

type Configuration struct {
	configDir string

	PathEnv         string `json:"path_env" validate:"required"`
	Prompt          string `json:"prompt"`
	Color           string `json:"color" validate:"oneof=always auto never"`
	MaxJobs         int    `json:"max_jobs" validate:"gte=0"`
	MaxArgs         int    `json:"max_args" validate:"gte=0"`
	Quoting         bool   `json:"quoting"`
	FullTablePolicy string `json:"full_table_policy" validate:"oneof=foreground reject"`
	KillSignal      string `json:"kill_signal" validate:"required,signal"`
	EventLog        string `json:"event_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})
	if err := validate.RegisterValidation("signal", func(fl validator.FieldLevel) bool {
		_, ok := proc.ParseSignal(fl.Field().String())
		return ok
	}); err != nil {
		return err
	}

	return validate.Struct(c)
}

// Dir returns the directory the configuration was loaded from, it's empty
// for the built-in defaults.
func (c *Configuration) Dir() string {
	return c.configDir
}

// EventLogPath returns the location of the event log on disk, or "" if it's
// disabled.
func (c *Configuration) EventLogPath() string {
	switch {
	case c.EventLog == "":
		return ""
	case filepath.IsAbs(c.EventLog) || c.configDir == "":
		return c.EventLog
	default:
		return filepath.Join(c.configDir, c.EventLog)
	}
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
