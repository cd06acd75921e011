// Package recovery contiene DTOs para el flujo de recuperación de cuenta.
package recovery

// RequestRecovery representa la solicitud de un código de recuperación.
type RequestRecovery struct {
	Email string `json:"email"`
}

// RequestRecoveryResponse siempre reporta éxito, exista o no la cuenta.
type RequestRecoveryResponse struct {
	OK bool `json:"ok"`
}

// VerifyRecovery representa el intento de canje de un código.
type VerifyRecovery struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyRecoveryResponse se devuelve cuando el código es correcto: las
// passkeys de la cuenta fueron eliminadas y el cliente debe re-registrar
// una con el flujo de registro normal.
type VerifyRecoveryResponse struct {
	Recovered bool `json:"recovered"`
}
