package host

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Conf is the host configuration handed to an execution, organised in
// sections of string values. The "lenv" section carries per-execution
// values (Identifier, usid, message); "main" carries service-wide ones
// (tmpPath).
type Conf map[string]map[string]string

// Well-known keys.
const (
	SectionLenv = "lenv"
	SectionMain = "main"

	KeyIdentifier = "Identifier"
	KeyUSID       = "usid"
	KeyMessage    = "message"
	KeyJobID      = "job_id"
	KeyTmpPath    = "tmpPath"
)

// NewConf returns a Conf for workflowID with a fresh run id.
func NewConf(workflowID, tmpPath string) Conf {
	return Conf{
		SectionLenv: {KeyIdentifier: workflowID, KeyUSID: uuid.NewString()},
		SectionMain: {KeyTmpPath: tmpPath},
	}
}

// LoadConf reads a YAML conf file.
func LoadConf(path string) (Conf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read conf %s: %w", path, err)
	}
	var c Conf
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse conf %s: %w", path, err)
	}
	if c == nil {
		c = Conf{}
	}
	return c, nil
}

// Get returns section.key, or "" when absent.
func (c Conf) Get(section, key string) string {
	return c[section][key]
}

// Set stores value at section.key, creating the section if needed.
func (c Conf) Set(section, key, value string) {
	if c[section] == nil {
		c[section] = map[string]string{}
	}
	c[section][key] = value
}

// WorkflowID returns the identifier of the CWL entry point (lenv.Identifier).
func (c Conf) WorkflowID() string {
	return c.Get(SectionLenv, KeyIdentifier)
}

// RunID returns the host's unique id for this execution (lenv.usid),
// assigning one when the host did not.
func (c Conf) RunID() string {
	id := c.Get(SectionLenv, KeyUSID)
	if id == "" {
		id = uuid.NewString()
		c.Set(SectionLenv, KeyUSID, id)
	}
	return id
}

// TmpPath returns main.tmpPath, defaulting to the OS temp directory.
func (c Conf) TmpPath() string {
	if p := c.Get(SectionMain, KeyTmpPath); p != "" {
		return p
	}
	return os.TempDir()
}

// Save writes the conf as YAML so the host can read back lenv.message
// and lenv.job_id.
func (c Conf) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode conf: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write conf %s: %w", path, err)
	}
	return nil
}
