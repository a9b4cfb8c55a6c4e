// Package routes holds the HTTP handlers of the knowledge-base chat API.
package routes

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}
