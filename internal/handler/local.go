// Package handler provides the deployment policies plugged into the
// runner: the stage-out parameters handed to the workflow and the
// delivery of the execution log and output object.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"github.com/me/zoorunner/internal/config"
	"github.com/me/zoorunner/internal/runner"
	"github.com/me/zoorunner/pkg/cwl"
)

// Artifact file names written for every job.
const (
	LogFile    = "job.log"
	OutputFile = "output.json"
)

// LocalHandler stores the execution log and output object under
// <base>/<jobid>/ on the local filesystem.
type LocalHandler struct {
	runner.JobIDHolder

	process  string
	stageOut config.StageOutConfig
	store    *diskv.Diskv
	logger   *slog.Logger
}

// NewLocalHandler creates a LocalHandler writing below base (usually the
// host's tmpPath). process is passed to the workflow as "process".
func NewLocalHandler(base, process string, stageOut config.StageOutConfig, logger *slog.Logger) *LocalHandler {
	return &LocalHandler{
		process:  process,
		stageOut: stageOut,
		store: diskv.New(diskv.Options{
			BasePath:          base,
			AdvancedTransform: jobTransform,
			InverseTransform:  jobInverseTransform,
			CacheSizeMax:      1024 * 1024,
		}),
		logger: logger.With("component", "handler"),
	}
}

// jobTransform maps "<jobid>/<file>" to the directory <jobid>.
func jobTransform(key string) *diskv.PathKey {
	dir, file := filepath.Split(key)
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return &diskv.PathKey{FileName: file}
	}
	return &diskv.PathKey{Path: strings.Split(dir, "/"), FileName: file}
}

func jobInverseTransform(pk *diskv.PathKey) string {
	return filepath.ToSlash(filepath.Join(append(pk.Path, pk.FileName)...))
}

func artifactKey(jobID, name string) string {
	return jobID + "/" + name
}

// AdditionalParameters implements runner.Handler.
func (h *LocalHandler) AdditionalParameters(context.Context) (map[string]any, error) {
	return map[string]any{
		"STAGEOUT_AWS_ACCESS_KEY_ID":     h.stageOut.AccessKeyID,
		"STAGEOUT_AWS_SECRET_ACCESS_KEY": h.stageOut.SecretAccessKey,
		"STAGEOUT_AWS_REGION":            h.stageOut.Region,
		"STAGEOUT_AWS_SERVICEURL":        h.stageOut.ServiceURL,
		"STAGEOUT_OUTPUT":                h.stageOut.Output,
		"process":                        h.process,
	}, nil
}

// HandleOutputs implements runner.Handler.
func (h *LocalHandler) HandleOutputs(_ context.Context, log string, output map[string]any, _ map[string]any, _ []string) error {
	_, err := h.persist(log, output)
	return err
}

// artifacts holds the encoded job.log and output.json.
type artifacts struct {
	log    []byte
	output []byte
}

func (h *LocalHandler) persist(log string, output map[string]any) (*artifacts, error) {
	jobID := h.JobID()
	if jobID == "" {
		return nil, fmt.Errorf("handle outputs: no job id")
	}
	encoded, err := cwl.MarshalOutput(output)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	a := &artifacts{log: []byte(log), output: encoded}

	if err := h.store.Write(artifactKey(jobID, LogFile), a.log); err != nil {
		return nil, fmt.Errorf("write %s: %w", LogFile, err)
	}
	if err := h.store.Write(artifactKey(jobID, OutputFile), a.output); err != nil {
		return nil, fmt.Errorf("write %s: %w", OutputFile, err)
	}
	h.logger.Info("artifacts written",
		"job_id", jobID,
		"dir", filepath.Join(h.store.BasePath, jobID),
	)
	return a, nil
}

// Artifact reads a stored artifact of the current job.
func (h *LocalHandler) Artifact(name string) ([]byte, error) {
	return h.store.Read(artifactKey(h.JobID(), name))
}
