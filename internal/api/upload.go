package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docmap/internal/address"
	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/fieldpath"
	"github.com/dgallion1/docmap/internal/inject"
	"github.com/dgallion1/docmap/internal/mapping"
	"github.com/dgallion1/docmap/internal/schema"
	"github.com/dgallion1/docmap/internal/session"
)

// requestError carries the status a handler should answer with.
type requestError struct {
	code int
	msg  string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// upload is one file part read from a multipart form.
type upload struct {
	name string
	data []byte
}

// parseForm limits the request body and parses the multipart form.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return &requestError{code: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)}
		}
		return badRequest("invalid multipart form: %v", err)
	}
	return nil
}

// formFile reads field as a file part, falling back to a plain form value of
// the same name. ok is false when neither is present.
func (s *Server) formFile(r *http.Request, field string) (upload, bool, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if v := r.FormValue(field); v != "" {
			return upload{name: field, data: []byte(v)}, true, nil
		}
		return upload{}, false, nil
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return upload{}, false, fmt.Errorf("read %s: %w", field, err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return upload{}, false, &requestError{code: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("%s exceeds max size (%d bytes)", field, s.cfg.MaxUploadBytes)}
	}
	return upload{name: sanitizeFilename(header.Filename), data: data}, true, nil
}

func (s *Server) requireFile(r *http.Request, field string) (upload, error) {
	up, ok, err := s.formFile(r, field)
	if err != nil {
		return upload{}, err
	}
	if !ok {
		return upload{}, badRequest("%s is required", field)
	}
	return up, nil
}

// document reads and parses the .docx uploaded as field.
func (s *Server) document(r *http.Request, field string) (*docmodel.Model, upload, error) {
	up, err := s.requireFile(r, field)
	if err != nil {
		return nil, upload{}, err
	}
	if !docmodel.IsSupportedFile(up.name) {
		return nil, upload{}, badRequest("unsupported file type: %s", filepath.Ext(up.name))
	}
	doc, err := docmodel.Load(bytes.NewReader(up.data))
	if err != nil {
		return nil, upload{}, badRequest("%s: %v", field, err)
	}
	return doc, up, nil
}

// fields resolves a JSON Schema into leaf fields, compiling it first when
// strict mode is on.
func (s *Server) fields(r *http.Request, data []byte) ([]schema.Field, error) {
	if s.cfg.StrictSchema {
		if err := schema.Check(data); err != nil {
			return nil, &requestError{code: http.StatusUnprocessableEntity, msg: err.Error()}
		}
	}
	opts := schema.Options{IncludeOptional: s.cfg.IncludeOptional}
	if v := r.URL.Query().Get("include_optional"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.IncludeOptional = b
		}
	}
	fields, err := schema.Resolve(data, opts)
	if err != nil {
		var ce *schema.CycleError
		if errors.As(err, &ce) {
			return nil, &requestError{code: http.StatusUnprocessableEntity, msg: err.Error()}
		}
		return nil, badRequest("schema: %v", err)
	}
	return fields, nil
}

// optionalMapping loads the mapping config in field, or returns nil.
func (s *Server) optionalMapping(r *http.Request, field string) (mapping.Mapping, error) {
	up, ok, err := s.formFile(r, field)
	if err != nil || !ok {
		return nil, err
	}
	m, err := mapping.Load(bytes.NewReader(up.data))
	if err != nil {
		return nil, badRequest("%s: %v", field, err)
	}
	return m, nil
}

func (s *Server) requireMapping(r *http.Request, field string) (mapping.Mapping, error) {
	m, err := s.optionalMapping(r, field)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, badRequest("%s is required", field)
	}
	return m, nil
}

// injectValues reads either a flat "values" object or a nested "data" object.
func (s *Server) injectValues(r *http.Request, m mapping.Mapping) (map[string]string, error) {
	if up, ok, err := s.formFile(r, "values"); err != nil {
		return nil, err
	} else if ok {
		var raw map[string]any
		if err := json.Unmarshal(up.data, &raw); err != nil {
			return nil, badRequest("values: %v", err)
		}
		values := make(map[string]string, len(raw))
		for k, v := range raw {
			values[k] = fieldpath.Format(v)
		}
		return values, nil
	}
	if up, ok, err := s.formFile(r, "data"); err != nil {
		return nil, err
	} else if ok {
		var data any
		if err := json.Unmarshal(up.data, &data); err != nil {
			return nil, badRequest("data: %v", err)
		}
		return inject.ValuesFromData(data, m), nil
	}
	return nil, badRequest("values or data is required")
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var re *requestError
	var fe *address.FormatError
	var oe *address.OutOfRangeError
	switch {
	case errors.As(err, &re):
		jsonError(w, re.msg, re.code)
	case errors.As(err, &fe):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &oe):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, mapping.ErrUnknownField):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) session(w http.ResponseWriter, id string) *session.Session {
	sess := s.sessions.Get(id)
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
	}
	return sess
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
