package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/me/zoorunner/internal/resources"
	"github.com/me/zoorunner/internal/workflow"
	"github.com/me/zoorunner/pkg/model"
)

// maxDocumentSize bounds the CWL document accepted by /resources.
const maxDocumentSize = 4 << 20

type resourcesResponse struct {
	WorkflowID string           `json:"workflow_id"`
	Values     *resources.Model `json:"values"`
	Sum        resources.Totals `json:"sum"`
	Max        resources.Totals `json:"max"`
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	workflowID := r.URL.Query().Get("workflow_id")
	if workflowID == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid request",
			model.FieldError{Field: "workflow_id", Message: "required"}))
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}

	doc, err := workflow.New(data, workflowID, s.parser)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid CWL document",
			model.FieldError{Field: "body", Message: err.Error()}))
		return
	}
	m, err := resources.NewEvaluator(s.logger, nil).Evaluate(doc)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, workflow.ErrUnresolved) || errors.Is(err, workflow.ErrNoWorkflow) {
			status = http.StatusUnprocessableEntity
		}
		respondError(w, reqID, status, &model.APIError{Code: model.ErrValidation, Message: err.Error()})
		return
	}
	respondOK(w, reqID, resourcesResponse{
		WorkflowID: workflowID,
		Values:     m,
		Sum:        m.Sum(),
		Max:        m.Max(),
	})
}
