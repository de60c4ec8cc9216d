package util

import "github.com/google/uuid"

// NewReqID genera un identificador único (UUIDv4) para correlacionar
// peticiones en logs y respuestas.
func NewReqID() string {
	return uuid.NewString()
}
