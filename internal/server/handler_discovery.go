package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "zoorunner API",
		Version:     "v1",
		Description: "Status history of CWL workflow runs",
		Endpoints: []endpointInfo{
			{"/api/v1/runs", []string{"GET"}, "List runs. Filters: state, workflow_id, limit, offset"},
			{"/api/v1/runs/{id}", []string{"GET"}, "Single run with its status events"},
			{"/api/v1/runs/{id}/status", []string{"GET"}, "Status events of a run"},
			{"/api/v1/resources", []string{"POST"}, "Aggregate the resource requirements of a posted CWL document (?workflow_id=)"},
			{"/api/v1/validate", []string{"POST"}, "Check a posted CWL document before execution"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
