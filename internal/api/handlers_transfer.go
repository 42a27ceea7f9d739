package api

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dgallion1/docmap/internal/extract"
	"github.com/dgallion1/docmap/internal/inject"
	"github.com/dgallion1/docmap/internal/mapping"
	"github.com/dgallion1/docmap/internal/schema"
	"github.com/go-chi/chi/v5/middleware"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func (s *Server) handleSchemaFields(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read schema", http.StatusRequestEntityTooLarge)
		return
	}
	fields, err := s.fields(r, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fields": fields,
		"groups": schema.GroupFields(fields),
	})
}

func (s *Server) handleDocumentNodes(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	doc, up, err := s.document(r, "file")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": up.name,
		"nodes":    infos(doc.Nodes()),
		"tables":   doc.Tables(),
	})
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	doc, _, err := s.document(r, "document")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	schemaUp, err := s.requireFile(r, "schema")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fields, err := s.fields(r, schemaUp.data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	existing, err := s.optionalMapping(r, "mapping")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	m := mapping.Guess(existing, fields, doc.Nodes())
	w.Header().Set("Content-Type", "application/json")
	if err := m.Save(w); err != nil {
		s.log.Error("write mapping", "error", err)
	}
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	doc, up, err := s.document(r, "document")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.requireMapping(r, "mapping")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	data, rep := extract.Extract(doc, m)
	s.stats.Record("extract", time.Since(start), len(m), len(rep.Failed))

	log := s.log.With("request_id", middleware.GetReqID(r.Context()), "filename", up.name)
	log.Info("extracted", "succeeded", len(rep.Succeeded), "failed", len(rep.Failed))
	for _, f := range rep.Failed {
		log.Warn("field not extracted", "field", f.Path, "reason", f.Reason)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":   data,
		"report": rep,
	})
}

func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	doc, up, err := s.document(r, "document")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.requireMapping(r, "mapping")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	values, err := s.injectValues(r, m)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	res := inject.Inject(doc, m, values)
	s.stats.Record("inject", time.Since(start), res.Applied+len(res.Failed), len(res.Failed))

	log := s.log.With("request_id", middleware.GetReqID(r.Context()), "filename", up.name)
	log.Info("injected", "applied", res.Applied, "failed", len(res.Failed), "warnings", len(res.Warnings))
	for _, f := range res.Failed {
		log.Warn("field not injected", "field", f.Path, "reason", f.Reason)
	}
	for _, wn := range res.Warnings {
		log.Warn("suspicious value", "field", wn.Path, "message", wn.Message)
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="filled_`+up.name+`"`)
	w.Header().Set("X-Docmap-Applied", strconv.Itoa(res.Applied))
	w.Header().Set("X-Docmap-Failed", strconv.Itoa(len(res.Failed)))
	w.Header().Set("X-Docmap-Warnings", strconv.Itoa(len(res.Warnings)))
	w.Write(buf.Bytes())
}
