// Package notify es el canal out-of-band para entregar códigos de recovery.
// El fallo de envío se loguea pero NUNCA bloquea la respuesta del caller:
// recovery-request responde success pase lo que pase (anti-enumeración).
package notify

// Sender envía un mensaje a un destinatario.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}
