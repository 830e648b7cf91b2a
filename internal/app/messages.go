package app

import (
	"errors"
	"fmt"

	"github.com/roach88/postcache/internal/remote"
)

// Error codes passed to Display.ShowError.
const (
	CodeFetch     = "FETCH_FAILED"
	CodeParse     = "PARSE_FAILED"
	CodeStoreOpen = "STORE_OPEN_FAILED"
	CodeRead      = "READ_FAILED"
)

// User-facing messages.
const (
	msgLoadPrefix = "Ocurrió un error: "
	msgStoreOpen  = "Error al abrir la base de datos."
	msgRead       = "Error al leer datos almacenados."
)

// describeLoadError maps a provider failure to a display code and message.
func describeLoadError(err error) (code, message string) {
	var fe *remote.FetchError
	var pe *remote.ParseError
	switch {
	case errors.As(err, &fe) && fe.Status != 0:
		return CodeFetch, msgLoadPrefix + fmt.Sprintf("Error al obtener los datos (HTTP %d)", fe.Status)
	case errors.As(err, &fe):
		return CodeFetch, msgLoadPrefix + fmt.Sprintf("Error al obtener los datos: %v", fe.Err)
	case errors.As(err, &pe):
		return CodeParse, msgLoadPrefix + fmt.Sprintf("Error al procesar los datos: %v", pe.Err)
	default:
		return CodeFetch, msgLoadPrefix + err.Error()
	}
}
