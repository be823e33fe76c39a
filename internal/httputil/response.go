// Package httputil writes the JSON envelope every endpoint responds with.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/anikkhan0099/moviehubbd/internal/models"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  []models.FieldError `json:"errors,omitempty"`
	// Error carries the raw failure text outside production.
	Error string `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func OK(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func WriteError(w http.ResponseWriter, status int, message string, fields []models.FieldError) {
	WriteJSON(w, status, Response{Success: false, Message: message, Errors: fields})
}

// ErrBadBody is returned for malformed or oversized JSON bodies.
var ErrBadBody = errors.New("invalid request body")

// ReadJSON decodes the request body into dst.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return fmt.Errorf("%w: expected application/json", ErrBadBody)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadBody)
		}
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	return nil
}

// ReadJSONPatch decodes a partial update onto dst, a pointer to the stored
// struct. Every field named in the body is reset before decoding, so lists,
// pointers and sub-documents are replaced as a whole and never merged with
// the stored elements by position. Fields absent from the body keep their
// stored values.
func ReadJSONPatch(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	var raw json.RawMessage
	if err := ReadJSON(w, r, &raw); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return fmt.Errorf("%w: expected a JSON object", ErrBadBody)
	}
	present := make(map[string]bool, len(keys))
	for k := range keys {
		present[strings.ToLower(k)] = true
	}
	resetPresent(reflect.ValueOf(dst).Elem(), present)
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	return nil
}

// resetPresent zeroes the fields of v whose JSON names are in present.
// Untagged embedded structs are flattened the way encoding/json does.
func resetPresent(v reflect.Value, present map[string]bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" && f.Type.Kind() == reflect.Struct {
			resetPresent(v.Field(i), present)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if present[strings.ToLower(name)] {
			v.Field(i).Set(reflect.Zero(f.Type))
		}
	}
}
