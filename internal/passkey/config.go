// Package passkey envuelve la verificación WebAuthn (go-webauthn): arma las
// ceremonias de registro y login y valida las respuestas del cliente contra el
// challenge guardado. No persiste nada; challenges e identidades son del caller.
package passkey

import (
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// Config es la configuración del relying party. Se lee una vez al arranque y
// es inmutable durante la vida del proceso. Cualquiera de los tres campos
// vacío es un error fatal de configuración, no un error por-request.
type Config struct {
	// RPID es el dominio del relying party. Ej: "trips.example.com"
	RPID string `yaml:"rp_id"`

	// RPDisplayName es el nombre legible del servicio. Ej: "Triplog"
	RPDisplayName string `yaml:"rp_display_name"`

	// RPOrigin es el origin permitido. Ej: "https://trips.example.com"
	RPOrigin string `yaml:"rp_origin"`

	// Timeout de las ceremonias. Default: 60s.
	Timeout time.Duration `yaml:"timeout"`
}

// Validate falla si falta cualquiera de los tres campos obligatorios.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("passkey: rp_id is required")
	}
	if c.RPDisplayName == "" {
		return fmt.Errorf("passkey: rp_display_name is required")
	}
	if c.RPOrigin == "" {
		return fmt.Errorf("passkey: rp_origin is required")
	}
	return nil
}

func (c *Config) toWebAuthnConfig() *webauthn.Config {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &webauthn.Config{
		RPID:          c.RPID,
		RPDisplayName: c.RPDisplayName,
		RPOrigins:     []string{c.RPOrigin},
		Timeouts: webauthn.TimeoutsConfig{
			Login:        webauthn.TimeoutConfig{Enforce: true, Timeout: timeout, TimeoutUVD: timeout},
			Registration: webauthn.TimeoutConfig{Enforce: true, Timeout: timeout, TimeoutUVD: timeout},
		},
	}
}
