package cwl

// Graph is a parsed CWL document. A packed document contributes one
// element per $graph entry in document order; a bare document contributes
// a single element.
type Graph struct {
	CWLVersion string
	Elements   []*Element
	Namespaces map[string]string // prefix -> URI mappings from $namespaces
}

// Lookup returns every element whose short id equals id.
// Callers decide whether zero or multiple matches is an error.
func (g *Graph) Lookup(id string) []*Element {
	want := ShortID(id)
	var found []*Element
	for _, e := range g.Elements {
		if ShortID(e.ID) == want {
			found = append(found, e)
		}
	}
	return found
}

// Workflows returns the Workflow elements in document order.
func (g *Graph) Workflows() []*Element {
	var wfs []*Element
	for _, e := range g.Elements {
		if e.IsWorkflow() {
			wfs = append(wfs, e)
		}
	}
	return wfs
}
