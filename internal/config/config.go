// Package config holds zoorunner configuration. Values come from
// defaults, then the environment, then command-line flags.
package config

import (
	"strconv"

	"dario.cat/mergo"

	"github.com/me/zoorunner/internal/wrapper"
)

// RunnerConfig configures one orchestrator and its collaborators.
type RunnerConfig struct {
	WorkDir  string         // Directory for the wrapped workflow and params files (default ".")
	OutDir   string         // Engine output directory (default "./runs")
	Parallel bool           // Run independent steps in parallel (default true)
	Debug    bool           // Engine debug logging (default false)
	Wrapper  wrapper.Assets // Staging wrapper templates
	StageOut StageOutConfig

	DBPath    string // SQLite status store path ("" disables the store)
	Addr      string // Status API listen address (default ":8080")
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: text, json, auto
}

// StageOutConfig holds the object storage destination handed to the
// stage-out step and used by the S3 output handler.
type StageOutConfig struct {
	ServiceURL      string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Output          string // Stage-out destination passed to the workflow
	Bucket          string // Bucket for job.log/output.json uploads
	Prefix          string // Key prefix for uploads
}

// Placeholder handed to the workflow when a credential is not configured.
const unsetCredential = "unset"

// DefaultRunnerConfig returns sensible defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkDir:   ".",
		OutDir:    "./runs",
		Parallel:  true,
		Wrapper:   wrapper.DefaultAssets(),
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		StageOut: StageOutConfig{
			Region:          "us-east-1",
			AccessKeyID:     unsetCredential,
			SecretAccessKey: unsetCredential,
			ServiceURL:      "",
			Output:          "",
			Prefix:          "processing-results",
		},
	}
}

// FromEnv overlays recognized environment variables on defaults.
// getenv is usually os.Getenv.
func FromEnv(getenv func(string) string) RunnerConfig {
	var cfg RunnerConfig

	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(dst *bool, key string) {
		if v, err := strconv.ParseBool(getenv(key)); err == nil {
			*dst = v
		}
	}

	setString(&cfg.Wrapper.StageIn, "WRAPPER_STAGE_IN")
	setString(&cfg.Wrapper.StageOut, "WRAPPER_STAGE_OUT")
	setString(&cfg.Wrapper.Main, "WRAPPER_MAIN")
	setString(&cfg.Wrapper.Rules, "WRAPPER_RULES")

	setString(&cfg.StageOut.ServiceURL, "AWS_SERVICE_URL")
	setString(&cfg.StageOut.Region, "AWS_REGION")
	setString(&cfg.StageOut.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&cfg.StageOut.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setString(&cfg.StageOut.Output, "STAGEOUT_OUTPUT")
	setString(&cfg.StageOut.Bucket, "STAGEOUT_BUCKET")
	setString(&cfg.StageOut.Prefix, "STAGEOUT_PREFIX")

	setString(&cfg.WorkDir, "ZOORUNNER_WORKDIR")
	setString(&cfg.OutDir, "ZOORUNNER_OUTDIR")
	setString(&cfg.DBPath, "ZOORUNNER_DB")
	setString(&cfg.Addr, "ZOORUNNER_ADDR")
	setString(&cfg.LogLevel, "ZOORUNNER_LOG_LEVEL")
	setString(&cfg.LogFormat, "ZOORUNNER_LOG_FORMAT")

	cfg = WithDefaults(cfg)

	// Booleans after the merge: false is a zero value mergo would fill.
	setBool(&cfg.Parallel, "ZOORUNNER_PARALLEL")
	setBool(&cfg.Debug, "ZOORUNNER_DEBUG")

	return cfg
}

// WithDefaults fills every unset field of cfg from DefaultRunnerConfig,
// descending into nested structs. Set fields are kept.
func WithDefaults(cfg RunnerConfig) RunnerConfig {
	merged := cfg
	if err := mergo.Merge(&merged, DefaultRunnerConfig()); err != nil {
		return DefaultRunnerConfig()
	}
	return merged
}
