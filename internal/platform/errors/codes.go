// Package errors provides structured, coded error handling for the counter
// service.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request validation errors
	CodeNameInvalid  Code = "COUNTER_NAME_INVALID"
	CodeParamInvalid Code = "RENDER_PARAM_INVALID"

	// Storage errors
	CodeStoreFailure        Code = "STORE_FAILURE"
	CodeStoreBackendUnknown Code = "STORE_BACKEND_UNKNOWN"
	CodeFlushFailure        Code = "FLUSH_FAILURE"

	// Theme and render errors
	CodeThemeRootInvalid Code = "THEME_ROOT_INVALID"
	CodeThemeEmpty       Code = "THEME_EMPTY"
	CodeGlyphMissing     Code = "GLYPH_MISSING"
	CodeSnapshotInvalid  Code = "THEME_SNAPSHOT_INVALID"
)

// HTTPStatus maps an error code to the HTTP status the boundary should
// return. Store failures map to OK because the read path fails open for
// display; the handler substitutes a zero count instead of an error page.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNameInvalid, CodeParamInvalid:
		return http.StatusBadRequest
	case CodeStoreFailure, CodeFlushFailure:
		return http.StatusOK
	case CodeGlyphMissing, CodeThemeRootInvalid, CodeThemeEmpty,
		CodeStoreBackendUnknown, CodeSnapshotInvalid:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
