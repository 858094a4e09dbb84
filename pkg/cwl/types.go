package cwl

import "strings"

// CWL process classes.
const (
	ClassWorkflow        = "Workflow"
	ClassCommandLineTool = "CommandLineTool"
	ClassExpressionTool  = "ExpressionTool"
)

// Requirement classes inspected by zoorunner.
const (
	ClassResourceRequirement       = "ResourceRequirement"
	ClassScatterFeatureRequirement = "ScatterFeatureRequirement"
)

// Entry is a requirement or hint: a free-form mapping tagged by "class".
type Entry map[string]any

// Class returns the entry's class tag, or "" when absent.
func (e Entry) Class() string {
	if v, ok := e["class"].(string); ok {
		return v
	}
	return ""
}

// ShortID strips document and parent prefixes from a CWL identifier:
// "#main" -> "main", "io://#main/aoi" -> "aoi", "node_ndwi" -> "node_ndwi".
func ShortID(id string) string {
	if i := strings.LastIndex(id, "#"); i >= 0 {
		id = id[i+1:]
	}
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return id
}
