package google

import (
	"errors"
	"net/http"

	"calbridge/internal/apperr"

	"google.golang.org/api/googleapi"
)

// statusCode returns the HTTP status of a googleapi failure, or 0.
func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// calendarError translates a Calendar API failure into a calendar_service error
// carrying the upstream status.
func calendarError(msg string, err error) error {
	return apperr.CalendarService(msg, statusCode(err), err)
}

// storageError translates a Drive API failure. A 404 on a known object id becomes
// a not-found storage error.
func storageError(msg, objectID string, err error) error {
	code := statusCode(err)
	if code == http.StatusNotFound && objectID != "" {
		return apperr.StorageNotFound(objectID, err)
	}
	return apperr.Storage(msg, code, err)
}
