package httputil

import (
	"encoding/json"
	"net/http"
)

// DetailResponse is the body of every error and message-only response
type DetailResponse struct {
	Detail string `json:"detail"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteDetail writes {"detail": message} with the given status code
func WriteDetail(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, DetailResponse{Detail: message})
}

// WriteBadRequest writes a 400 detail response
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes a 401 detail response
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a 403 detail response
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusForbidden, message)
}

// WriteNotFound writes a 404 detail response
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusNotFound, message)
}

// WriteTooManyRequests writes a 429 detail response
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusTooManyRequests, message)
}

// WriteInternalError writes a 500 without leaking the underlying error
func WriteInternalError(w http.ResponseWriter) {
	WriteDetail(w, http.StatusInternalServerError, "A server error occurred.")
}

// WriteCreated writes a 201 with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a 200 with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a 204
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
