// Package workflow provides a read-only view over a parsed CWL workflow
// document: declared inputs, step target resolution, resource requirement
// lookup and scatter detection.
package workflow

import (
	"errors"
	"fmt"

	"github.com/me/zoorunner/internal/parser"
	"github.com/me/zoorunner/pkg/cwl"
)

// Sentinel errors.
var (
	ErrNoWorkflow = errors.New("no workflow element")
	ErrUnresolved = errors.New("step target does not resolve to exactly one element")
)

// Document is a parsed CWL document identified by its workflow id.
// Raw keeps the original text handed to the staging wrapper.
type Document struct {
	ID    string
	Raw   []byte
	Graph *cwl.Graph
}

// New parses raw CWL text into a Document for workflowID.
func New(raw []byte, workflowID string, p *parser.Parser) (*Document, error) {
	graph, err := p.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", workflowID, err)
	}
	doc := &Document{ID: workflowID, Raw: raw, Graph: graph}
	if _, err := doc.Workflow(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Workflow returns the top-level workflow element: the Workflow whose id
// matches the document id, or the only Workflow when ids do not match.
func (d *Document) Workflow() (*cwl.Element, error) {
	wfs := d.Graph.Workflows()
	for _, wf := range wfs {
		if cwl.ShortID(wf.ID) == d.ID {
			return wf, nil
		}
	}
	if len(wfs) == 1 {
		return wfs[0], nil
	}
	return nil, fmt.Errorf("%w: %q (document has %d workflows)", ErrNoWorkflow, d.ID, len(wfs))
}

// Inputs returns the ids of the workflow's declared inputs in document
// order. With mandatory set, only inputs with no default whose type is not
// the nullable string ["null", "string"] are returned.
func (d *Document) Inputs(mandatory bool) []string {
	wf, err := d.Workflow()
	if err != nil {
		return nil
	}
	var ids []string
	for _, inp := range wf.Inputs {
		if mandatory && (inp.Default != nil || inp.IsNullableString()) {
			continue
		}
		ids = append(ids, inp.ID)
	}
	return ids
}

// ObjectByID resolves a step target by id. The id must match exactly one
// element of the document.
func (d *Document) ObjectByID(id string) (*cwl.Element, error) {
	found := d.Graph.Lookup(id)
	if len(found) != 1 {
		return nil, fmt.Errorf("%w: %q matched %d elements", ErrUnresolved, id, len(found))
	}
	return found[0], nil
}
