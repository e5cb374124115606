/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package types

import "time"

// AppConfig represents the complete application configuration
type AppConfig struct {
	Verbose   bool            `mapstructure:"verbose"`
	Config    string          `mapstructure:"config"`
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Log       LogConfig       `mapstructure:"log" validate:"required"`
	Planning  PlanningConfig  `mapstructure:"planning" validate:"required"`
	Execution ExecutionConfig `mapstructure:"execution" validate:"required"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Document  DocumentConfig  `mapstructure:"document"`
	Journal   JournalConfig   `mapstructure:"journal"`
}

// ServerConfig holds MCP server identity and transport
type ServerConfig struct {
	Name      string `mapstructure:"name" validate:"required"`
	Version   string `mapstructure:"version" validate:"required"`
	Transport string `mapstructure:"transport" validate:"required,oneof=stdio"`
}

// LogConfig holds structured logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
	// File redirects logs from stderr to a file
	File string `mapstructure:"file"`
}

// PlanningConfig holds planning session settings
type PlanningConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// OutputDir is where plan documents go when no path is given
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	// WBSFilename is appended to the sanitized project name, e.g. Shop_WBS.md
	WBSFilename string `mapstructure:"wbs_filename" validate:"required"`
	// ExportByDefault writes the document after steps that add tasks
	ExportByDefault bool `mapstructure:"export_by_default"`
}

// ExecutionConfig holds execution session settings
type ExecutionConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	TrackingDir string `mapstructure:"tracking_dir" validate:"required"`
	// StatusFormat is the format of status snapshots in TrackingDir
	StatusFormat string `mapstructure:"status_format" validate:"required,oneof=json yaml markdown"`
	// ProgressReports enables status snapshots after each completion
	ProgressReports bool `mapstructure:"progress_reports"`
	// WatchDocuments flags sessions whose document is edited externally
	WatchDocuments           bool     `mapstructure:"watch_documents"`
	ComplexityKeywords       []string `mapstructure:"complexity_keywords"`
	LongDescriptionThreshold int      `mapstructure:"long_description_threshold" validate:"min=0"`
}

// LimitsConfig caps plan size
type LimitsConfig struct {
	MaxDepth    int `mapstructure:"max_depth" validate:"min=0"`
	MaxTasks    int `mapstructure:"max_tasks" validate:"min=0"`
	MaxBranches int `mapstructure:"max_branches" validate:"min=0"`
}

// DocumentConfig bounds document write-back
type DocumentConfig struct {
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	WriteRetries int           `mapstructure:"write_retries" validate:"min=0,max=10"`
}

// JournalConfig enables the sqlite audit journal when Path is set
type JournalConfig struct {
	Path string `mapstructure:"path"`
}
