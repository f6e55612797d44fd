package auth

import (
	"strings"

	"github.com/Emanuel0428/FlowForgeAI-sub001/internal/supabase"
)

// LocalizedError carries the user-facing Spanish message while preserving
// the remote cause for logs.
type LocalizedError struct {
	Message string
	Err     error
}

func (e *LocalizedError) Error() string { return e.Message }

func (e *LocalizedError) Unwrap() error { return e.Err }

// Known upstream phrases mapped to user-facing text. Matched by substring,
// first hit wins; anything unmatched falls back to the generic message.
var knownPhrases = []struct {
	contains  string
	localized string
}{
	{"Invalid login credentials", "Credenciales inválidas. Verifica tu correo y contraseña."},
	{"Email not confirmed", "Debes confirmar tu correo electrónico antes de iniciar sesión."},
	{"User already registered", "Este correo ya está registrado. Intenta iniciar sesión."},
	{"Password should be at least", "La contraseña debe tener al menos 6 caracteres."},
	{"Email rate limit exceeded", "Demasiados intentos. Espera unos minutos e inténtalo de nuevo."},
	{"Signup requires a valid password", "La contraseña no es válida."},
	{"User not found", "No existe una cuenta con este correo."},
}

const (
	genericMessage = "Error de autenticación. Inténtalo de nuevo."
	networkMessage = "Error de conexión. Verifica tu conexión a internet e inténtalo de nuevo."
)

// translate maps a remote error to its localized user-facing form.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch supabase.KindOf(err) {
	case supabase.KindNetwork:
		return &LocalizedError{Message: networkMessage, Err: err}
	case supabase.KindInvalidCredentials:
		return &LocalizedError{Message: "Credenciales inválidas. Verifica tu correo y contraseña.", Err: err}
	}
	msg := err.Error()
	for _, phrase := range knownPhrases {
		if strings.Contains(msg, phrase.contains) {
			return &LocalizedError{Message: phrase.localized, Err: err}
		}
	}
	return &LocalizedError{Message: genericMessage, Err: err}
}
