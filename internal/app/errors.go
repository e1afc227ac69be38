package app

import (
	"fmt"
	"net/http"
)

// DomainError is an error the HTTP layer renders as-is in the error envelope.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func errRoomNotMounted(roomID string) *DomainError {
	return domainError(http.StatusNotFound, "ROOM_NOT_MOUNTED", "Room is not mounted", map[string]any{"roomId": roomID})
}

func errRoomAuthUnavailable() *DomainError {
	return domainError(http.StatusServiceUnavailable, "ROOM_AUTH_UNAVAILABLE", "Room authentication is not configured", nil)
}

func errDocumentNotFound(documentID string) *DomainError {
	return domainError(http.StatusNotFound, "DOCUMENT_NOT_FOUND", "Document not found", map[string]any{"documentId": documentID})
}

func errForbidden() *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func errValidation(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}
