package config

import "testing"

func TestDefaultRunnerConfig(t *testing.T) {
	cfg := DefaultRunnerConfig()
	if cfg.OutDir != "./runs" {
		t.Errorf("OutDir = %q, want ./runs", cfg.OutDir)
	}
	if !cfg.Parallel || cfg.Debug {
		t.Errorf("Parallel/Debug = %v/%v, want true/false", cfg.Parallel, cfg.Debug)
	}
	if cfg.Wrapper.StageIn != "/assets/stagein.yaml" {
		t.Errorf("Wrapper.StageIn = %q", cfg.Wrapper.StageIn)
	}
	if cfg.StageOut.AccessKeyID == "" || cfg.StageOut.SecretAccessKey == "" {
		t.Error("credentials should default to a placeholder, not empty")
	}
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		"WRAPPER_STAGE_IN":      "/opt/assets/stagein.yaml",
		"WRAPPER_RULES":         "/opt/assets/rules.yaml",
		"AWS_REGION":            "eu-central-1",
		"AWS_ACCESS_KEY_ID":     "AKIA",
		"AWS_SECRET_ACCESS_KEY": "secret",
		"AWS_SERVICE_URL":       "https://s3.example.org",
		"STAGEOUT_BUCKET":       "results",
		"ZOORUNNER_PARALLEL":    "false",
		"ZOORUNNER_DEBUG":       "not-a-bool",
	}
	cfg := FromEnv(func(k string) string { return env[k] })

	if cfg.Wrapper.StageIn != "/opt/assets/stagein.yaml" {
		t.Errorf("Wrapper.StageIn = %q", cfg.Wrapper.StageIn)
	}
	if cfg.Wrapper.StageOut != "/assets/stageout.yaml" {
		t.Errorf("Wrapper.StageOut = %q, want default", cfg.Wrapper.StageOut)
	}
	if cfg.Wrapper.Rules != "/opt/assets/rules.yaml" {
		t.Errorf("Wrapper.Rules = %q", cfg.Wrapper.Rules)
	}
	if cfg.StageOut.Region != "eu-central-1" || cfg.StageOut.AccessKeyID != "AKIA" {
		t.Errorf("StageOut = %+v", cfg.StageOut)
	}
	if cfg.StageOut.Bucket != "results" {
		t.Errorf("Bucket = %q, want results", cfg.StageOut.Bucket)
	}
	if cfg.Parallel {
		t.Error("Parallel = true, want false from env")
	}
	if cfg.Debug {
		t.Error("Debug = true, want default for unparseable value")
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := WithDefaults(RunnerConfig{
		OutDir:   "/data/runs",
		StageOut: StageOutConfig{Bucket: "results", Region: "eu-west-1"},
	})

	if cfg.OutDir != "/data/runs" {
		t.Errorf("OutDir = %q, want /data/runs", cfg.OutDir)
	}
	if cfg.WorkDir != "." {
		t.Errorf("WorkDir = %q, want default .", cfg.WorkDir)
	}
	if cfg.StageOut.Bucket != "results" || cfg.StageOut.Region != "eu-west-1" {
		t.Errorf("StageOut = %+v, set fields should be kept", cfg.StageOut)
	}
	if cfg.StageOut.Prefix != "processing-results" {
		t.Errorf("StageOut.Prefix = %q, want default", cfg.StageOut.Prefix)
	}
	if cfg.StageOut.AccessKeyID != unsetCredential {
		t.Errorf("StageOut.AccessKeyID = %q, want placeholder", cfg.StageOut.AccessKeyID)
	}
	if cfg.Wrapper.Main != "/assets/maincwl.yaml" {
		t.Errorf("Wrapper.Main = %q, want default", cfg.Wrapper.Main)
	}
	if !cfg.Parallel {
		t.Error("Parallel = false, want default true")
	}
}
