package api

import (
	"context"
	"errors"
	"net/http"

	"gateway/internal/domain"
)

// errorResponse is the body shape every error response carries, per
// spec.md §7.
type errorResponse struct {
	Errors []errorDetail `json:"errors"`
}

type errorDetail struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	ResourceID string `json:"resource_id,omitempty"`
	DatasetID  string `json:"dataset_id,omitempty"`
	Column     string `json:"column,omitempty"`
	Suffix     string `json:"operator,omitempty"`
	Value      string `json:"value,omitempty"`
}

// httpStatusFromDomainError maps domain errors to HTTP status codes, per
// spec.md §7's taxonomy.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.ResourceNotFoundError
	var gone *domain.ResourceGoneError
	var profileNotFound *domain.ProfileNotFoundError
	var invalidParam *domain.InvalidParameterError
	var invalidValue *domain.InvalidValueError
	var aggNotAllowed *domain.AggregationNotAllowedError
	var downstream *domain.DownstreamUnavailableError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &gone):
		return http.StatusGone
	case errors.As(err, &profileNotFound):
		return http.StatusNotFound
	case errors.As(err, &invalidParam):
		return http.StatusBadRequest
	case errors.As(err, &invalidValue):
		return http.StatusBadRequest
	case errors.As(err, &aggNotAllowed):
		return http.StatusForbidden
	case errors.As(err, &downstream):
		// A downstream 4xx means the gateway built a bad request — that
		// is this gateway's bug, not an availability problem, and per
		// spec escalates to an opaque internal error rather than 502/504.
		if downstream.StatusCode >= 400 && downstream.StatusCode < 500 {
			return http.StatusInternalServerError
		}
		if errors.Is(downstream.Cause, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code and writes the spec.md §7 body
// shape. resource_not_found, profile_not_found and aggregation_not_allowed
// carry the offending resource_id (resource_gone adds dataset_id);
// invalid_parameter/invalid_value name the column and operator;
// downstream and internal failures are opaque to the client.
func writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	detail := errorDetail{Code: errorCode(err), Message: genericMessage(status, err)}

	var notFound *domain.ResourceNotFoundError
	var gone *domain.ResourceGoneError
	var profileNotFound *domain.ProfileNotFoundError
	var invalidParam *domain.InvalidParameterError
	var invalidValue *domain.InvalidValueError
	var aggNotAllowed *domain.AggregationNotAllowedError

	switch {
	case errors.As(err, &notFound):
		detail.ResourceID = notFound.ResourceID
	case errors.As(err, &gone):
		detail.ResourceID = gone.ResourceID
		detail.DatasetID = gone.DatasetID
	case errors.As(err, &profileNotFound):
		detail.ResourceID = profileNotFound.ResourceID
	case errors.As(err, &invalidParam):
		detail.Column = invalidParam.Column
		detail.Suffix = invalidParam.Suffix
		detail.Message = err.Error()
	case errors.As(err, &invalidValue):
		detail.Column = invalidValue.Column
		detail.Suffix = invalidValue.Suffix
		detail.Value = invalidValue.Value
		detail.Message = err.Error()
	case errors.As(err, &aggNotAllowed):
		detail.ResourceID = aggNotAllowed.ResourceID
	}

	writeJSON(w, status, errorResponse{Errors: []errorDetail{detail}})
}

// errorCode derives the wire "code" field from the domain error's type,
// not its HTTP status: resource_not_found and profile_not_found both map
// to 404, and code is the only wire signal that distinguishes them, per
// spec.md §4.2/§7.
func errorCode(err error) string {
	var notFound *domain.ResourceNotFoundError
	var gone *domain.ResourceGoneError
	var profileNotFound *domain.ProfileNotFoundError
	var invalidParam *domain.InvalidParameterError
	var invalidValue *domain.InvalidValueError
	var aggNotAllowed *domain.AggregationNotAllowedError
	var downstream *domain.DownstreamUnavailableError

	switch {
	case errors.As(err, &notFound):
		return "resource_not_found"
	case errors.As(err, &gone):
		return "resource_gone"
	case errors.As(err, &profileNotFound):
		return "profile_not_found"
	case errors.As(err, &invalidParam):
		return "invalid_parameter"
	case errors.As(err, &invalidValue):
		return "invalid_value"
	case errors.As(err, &aggNotAllowed):
		return "aggregation_not_allowed"
	case errors.As(err, &downstream):
		if downstream.StatusCode >= 400 && downstream.StatusCode < 500 {
			return "internal"
		}
		return "downstream_unavailable"
	default:
		return "internal"
	}
}

// genericMessage keeps downstream/internal failures opaque to the
// client, per spec.md §7, while parse/validation/lookup errors surface
// their own descriptive message.
func genericMessage(status int, err error) string {
	switch status {
	case http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusInternalServerError:
		return http.StatusText(status)
	default:
		return err.Error()
	}
}
