package token

import (
	"crypto/rand"
	"encoding/base64"
)

// InviteCodeBytes produce códigos base64url de 32 caracteres (24 bytes * 4/3).
const InviteCodeBytes = 24

// RecoveryCodeBytes produce códigos de 16 caracteres: se tipean a mano desde
// un email, más cortos pero igual imposibles de adivinar dentro del TTL.
const RecoveryCodeBytes = 12

// GenerateOpaque genera un token opaco aleatorio (base64url sin padding).
// crypto/rand siempre; nunca derivar códigos de inputs predecibles.
func GenerateOpaque(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateInviteCode genera un código de invitación URL-safe de largo fijo (32).
func GenerateInviteCode() (string, error) {
	return GenerateOpaque(InviteCodeBytes)
}

// GenerateRecoveryCode genera un código de recovery URL-safe de largo fijo (16).
func GenerateRecoveryCode() (string, error) {
	return GenerateOpaque(RecoveryCodeBytes)
}
