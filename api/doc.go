// Package api exposes the library services over HTTP with gin.
//
// Every response uses the envelope {code, message, data, request_id}.
// Service errors map to status codes: invalid argument 400, unauthorized
// 401, forbidden 403, not found 404, conflict 409 and anything else 500.
package api
