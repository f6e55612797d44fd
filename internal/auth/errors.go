package auth

import "errors"

var (
	// ErrNotAuthenticated is the shared not-authenticated condition surfaced
	// with the same wording by every service.
	ErrNotAuthenticated = errors.New("Usuario no autenticado")

	// ErrInvalidEmail rejects addresses that do not match local@domain.tld.
	ErrInvalidEmail = errors.New("Correo electrónico inválido")

	// ErrPasswordTooShort rejects passwords under 6 characters.
	ErrPasswordTooShort = errors.New("La contraseña debe tener al menos 6 caracteres")
)
