package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"covermsg/internal/service"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
		return err
	}

	return nil
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		log.Error().Err(err).Msg("failed to write error response")
	}
}

// WriteCreated writes a 201 Created response with the given data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteOK writes a 200 OK response with the given data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteValidationError writes a 400 Bad Request response with VALIDATION_ERROR code
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

// WriteNotFoundError writes a 404 Not Found response with RESOURCE_NOT_FOUND code
func WriteNotFoundError(w http.ResponseWriter, resource string, id int) {
	message := fmt.Sprintf("%s with ID %d not found", resource, id)
	WriteError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", message)
}

// WriteInternalError writes a 500 Internal Server Error response with INTERNAL_ERROR code
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

// WriteBusinessLogicError writes a 400 Bad Request response with BUSINESS_LOGIC_ERROR code
func WriteBusinessLogicError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "BUSINESS_LOGIC_ERROR", message)
}

// WriteConfigurationError writes a 400 Bad Request response with CONFIGURATION_ERROR
// code. Returned when routing or templates are missing for a request, which
// an operator must fix rather than the caller.
func WriteConfigurationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "CONFIGURATION_ERROR", message)
}

// WriteConflictError writes a 409 Conflict response with CONFLICT code
func WriteConflictError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "CONFLICT", message)
}

// HandleServiceError maps service layer errors to appropriate HTTP responses
func HandleServiceError(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *service.NotFoundError:
		WriteNotFoundError(w, e.Resource, e.ID)
	case *service.ValidationError:
		WriteValidationError(w, e.Message)
	case *service.ConfigurationError:
		WriteConfigurationError(w, e.Message)
	case *service.BusinessLogicError:
		WriteBusinessLogicError(w, e.Message)
	case *service.ConflictError:
		WriteConflictError(w, e.Message)
	default:
		log.Error().Err(err).Msg("unhandled service error")
		WriteInternalError(w)
	}
}
