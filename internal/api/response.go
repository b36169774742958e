package api

import (
	"encoding/json"
	"net/http"

	"github.com/timada-org/todo/internal/todo"
)

const (
	statusOK      = "ok"
	statusFailure = "failure"

	msgInvalidData     = "Invalid data received. Please check documentation."
	msgQueryFailed     = "Internal error. Database query failed."
	msgUnknownRA       = "Unknown RA"
	msgInsertFailed    = "Failed to insert item"
	msgUpdateFailed    = "Failed to update item"
	msgRemoveFailed    = "Failed to remove item"
	msgItemNotFound    = "Internal error. Could not find item with the given id"
	msgUnauthorized    = "Unauthorized"
	msgTooManyRequests = "Too many requests"
)

type statusResponse struct {
	Status string `json:"status"`
}

type listResponse struct {
	Status string      `json:"status"`
	Items  []todo.Item `json:"items"`
}

type itemResponse struct {
	Status string    `json:"status"`
	Item   todo.Item `json:"item"`
}

type failureResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Debug   string `json:"debug,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(v)
}

func success(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, &statusResponse{Status: statusOK})
}

func failure(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, &failureResponse{Status: statusFailure, Message: message})
}

func invalid(w http.ResponseWriter, received string) {
	writeJSON(w, http.StatusNotAcceptable, &failureResponse{
		Status:  statusFailure,
		Message: msgInvalidData,
		Debug:   "Received: " + received,
	})
}
