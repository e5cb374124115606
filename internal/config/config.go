// Package config loads the application configuration from defaults, an
// optional YAML file, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/josephgoksu/wbsplan/internal/task"
	"github.com/josephgoksu/wbsplan/types"
)

const (
	configName = ".wbsplan"
	envPrefix  = "WBSPLAN"
)

// DefaultComplexityKeywords mark a task as worth deeper deliberation.
var DefaultComplexityKeywords = []string{
	"architecture", "design", "system", "algorithm", "database", "api",
	"performance", "security", "optimization", "integration", "framework",
	"structure", "pattern", "strategy", "analysis", "planning", "schema",
}

// legacyEnv maps environment names used by earlier planning servers to keys.
var legacyEnv = map[string]string{
	"server.name":                "MCP_SERVER_NAME",
	"log.level":                  "MCP_LOG_LEVEL",
	"log.file":                   "MCP_LOG_FILE",
	"planning.enabled":           "ENABLE_PLANNING",
	"planning.wbs_filename":      "PLANNING_WBS_FILENAME",
	"execution.enabled":          "ENABLE_WBS_EXECUTION",
	"execution.status_format":    "WBS_EXECUTION_STATUS_FORMAT",
	"execution.progress_reports": "WBS_EXECUTION_ENABLE_PROGRESS",
	"execution.watch_documents":  "WBS_EXECUTION_WATCH_DOCUMENTS",
	"planning.output_dir":        "PLANNING_OUTPUT_DIR",
	"execution.tracking_dir":     "WBS_EXECUTION_TRACKING_DIR",
	"limits.max_depth":           "PLANNING_MAX_DEPTH",
	"limits.max_branches":        "PLANNING_MAX_BRANCHES",
	"document.write_timeout":     "WBS_WRITE_TIMEOUT",
	"journal.path":               "WBS_JOURNAL_PATH",
}

var validate = validator.New()

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "wbs-planning-engine")
	v.SetDefault("server.version", "0.1.0")
	v.SetDefault("server.transport", "stdio")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	v.SetDefault("planning.enabled", true)
	v.SetDefault("planning.output_dir", filepath.Join("output", "planning"))
	v.SetDefault("planning.wbs_filename", "WBS.md")
	v.SetDefault("planning.export_by_default", true)

	v.SetDefault("execution.enabled", true)
	v.SetDefault("execution.tracking_dir", filepath.Join("output", "planning", "execution"))
	v.SetDefault("execution.status_format", "json")
	v.SetDefault("execution.progress_reports", true)
	v.SetDefault("execution.watch_documents", false)
	v.SetDefault("execution.complexity_keywords", DefaultComplexityKeywords)
	v.SetDefault("execution.long_description_threshold", 200)

	limits := task.DefaultLimits()
	v.SetDefault("limits.max_depth", limits.MaxDepth)
	v.SetDefault("limits.max_tasks", limits.MaxTasks)
	v.SetDefault("limits.max_branches", limits.MaxBranches)

	v.SetDefault("document.write_timeout", 5*time.Second)
	v.SetDefault("document.write_retries", 3)

	v.SetDefault("journal.path", "")
}

// BindEnv wires WBSPLAN_* variables and the legacy names.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range legacyEnv {
		// Prefixed name first so it wins over the legacy one.
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load resolves configuration into an AppConfig. cfgFile may be empty, in
// which case ./.wbsplan.yaml and ~/.wbsplan.yaml are searched. A .env file in
// the working directory is loaded first if present.
func Load(v *viper.Viper, cfgFile string) (*types.AppConfig, error) {
	_ = godotenv.Load()

	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := GetGlobalConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Execution.ComplexityKeywords) == 0 {
		cfg.Execution.ComplexityKeywords = DefaultComplexityKeywords
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and returns a readable error.
func Validate(cfg *types.AppConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), task.FormatFieldError(fe)))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Limits converts the configured caps.
func Limits(cfg *types.AppConfig) task.Limits {
	return task.Limits{
		MaxDepth:    cfg.Limits.MaxDepth,
		MaxTasks:    cfg.Limits.MaxTasks,
		MaxBranches: cfg.Limits.MaxBranches,
	}
}
