// Package handler contains the HTTP handlers of the easychef API.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming request (path params, JSON body)
// 2. Call the service layer
// 3. Write the response through writeJSON / writeError
//
// Handlers hold no business rules; validation lives in internal/service and
// the session check in middleware.RequireSession.
package handler
