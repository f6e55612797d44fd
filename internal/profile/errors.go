package profile

import "errors"

var (
	// ErrNotFound reports that the user has no profile row to operate on.
	ErrNotFound = errors.New("No existe un perfil de negocio para este usuario")

	// ErrNotSaved reports that the remote accepted the write but returned no
	// row, so the saved state is unknown.
	ErrNotSaved = errors.New("El perfil no pudo ser guardado. Inténtalo de nuevo.")
)
