// Package errors provides structured error handling with error codes for simple-oxtrust.
//
// Services return package-level sentinel errors (scope.ErrScopeNotFound and
// friends) wrapped with fmt.Errorf. The admin API translates them into an
// *Error with a code, which decides the HTTP status and the JSON body.
//
// # Basic Usage
//
//	err := errors.New(errors.ErrCodeScopeNotFound, "scope not found")
//	err := errors.Wrap(storeErr, errors.ErrCodeStoreUnavailable, "failed to read scopes")
//	err := errors.InvalidInput("redirectUris", "must use https")
//
// # Error Inspection
//
//	if errors.IsCode(err, errors.ErrCodeClientNotFound) {
//		// ...
//	}
//
// # HTTP Responses
//
//	status, body := errors.ToResponse(err)
//	render.Status(r, status)
//	render.JSON(w, r, body)
//
// Errors that are not an *Error are reported as INTERNAL_ERROR with a
// generic message so store failures never leak to API clients.
package errors
