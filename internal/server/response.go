package server

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/me/zoorunner/pkg/model"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

func respondOK(w http.ResponseWriter, reqID string, data any) {
	writeEnvelope(w, http.StatusOK, model.Response{Status: statusOK, RequestID: reqID, Data: data})
}

func respondList(w http.ResponseWriter, reqID string, data any, pg *model.Pagination) {
	writeEnvelope(w, http.StatusOK, model.Response{Status: statusOK, RequestID: reqID, Data: data, Pagination: pg})
}

func respondError(w http.ResponseWriter, reqID string, status int, apiErr *model.APIError) {
	writeEnvelope(w, status, model.Response{Status: statusError, RequestID: reqID, Error: apiErr})
}

// writeEnvelope stamps and encodes resp. Encoding happens before the
// header is written so a marshal failure still yields a 500.
func writeEnvelope(w http.ResponseWriter, status int, resp model.Response) {
	resp.Timestamp = time.Now().UTC()
	body, err := json.Marshal(resp)
	if err != nil {
		body, _ = json.Marshal(model.Response{
			Status:    statusError,
			RequestID: resp.RequestID,
			Timestamp: resp.Timestamp,
			Error:     model.NewInternalError(fmt.Errorf("encode response: %w", err)),
		})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
