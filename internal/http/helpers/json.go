// Package helpers contiene utilidades compartidas por los controllers.
package helpers

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxBodyBytes acota el body de cualquier request de la API.
const maxBodyBytes = 1 << 20 // 1 MiB

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodifica el body JSON en dst con límite de tamaño.
func DecodeJSON(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	return dec.Decode(dst)
}
