package server

import (
	"io"
	"net/http"

	"github.com/me/zoorunner/pkg/model"
)

type validateResponse struct {
	Valid      bool   `json:"valid"`
	CWLVersion string `json:"cwl_version"`
	Elements   int    `json:"elements"`
	Workflows  int    `json:"workflows"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}
	graph, err := s.parser.Parse(data)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid CWL document",
			model.FieldError{Field: "body", Message: err.Error()}))
		return
	}
	if apiErr := s.validator.Validate(graph); apiErr != nil {
		respondError(w, reqID, http.StatusUnprocessableEntity, apiErr)
		return
	}
	respondOK(w, reqID, validateResponse{
		Valid:      true,
		CWLVersion: graph.CWLVersion,
		Elements:   len(graph.Elements),
		Workflows:  len(graph.Workflows()),
	})
}
