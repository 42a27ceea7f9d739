package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docmap/internal/address"
	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/mapping"
	"github.com/dgallion1/docmap/internal/session"
	"github.com/go-chi/chi/v5"
)

type fieldRequest struct {
	Field   string `json:"field"`
	Address string `json:"address,omitempty"`
	Value   string `json:"value,omitempty"`
}

func decodeFieldRequest(w http.ResponseWriter, r *http.Request) (fieldRequest, error) {
	var req fieldRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, badRequest("invalid request body: %v", err)
	}
	if req.Field == "" {
		return req, badRequest("field is required")
	}
	return req, nil
}

func infos(nodes []docmodel.Node) []docmodel.NodeInfo {
	out := make([]docmodel.NodeInfo, len(nodes))
	for i, n := range nodes {
		out[i] = docmodel.Info(n)
	}
	return out
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
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

	sess := session.New(up.name, up.data, doc, fields, existing)
	s.sessions.Put(sess)
	snap := sess.Snapshot()
	s.log.Info("session created",
		"session_id", sess.ID,
		"filename", up.name,
		"fields", snap.Progress.Total,
		"guessed", snap.Progress.Mapped,
	)
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, chi.URLParam(r, "sessionID"))
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "sessionID")) {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// update decodes a field request and applies fn to the session state.
func (s *Server) update(w http.ResponseWriter, r *http.Request, fn func(req fieldRequest, doc *docmodel.Model, st mapping.Session) (mapping.Session, error)) {
	sess := s.session(w, chi.URLParam(r, "sessionID"))
	if sess == nil {
		return
	}
	req, err := decodeFieldRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	err = sess.Update(func(doc *docmodel.Model, st mapping.Session) (mapping.Session, error) {
		return fn(req, doc, st)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, func(req fieldRequest, doc *docmodel.Model, st mapping.Session) (mapping.Session, error) {
		addr, err := address.Parse(req.Address)
		if err != nil {
			return st, err
		}
		n, err := doc.Locate(addr)
		if err != nil {
			return st, err
		}
		return st.Assign(req.Field, mapping.LocationOf(n))
	})
}

func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, func(req fieldRequest, _ *docmodel.Model, st mapping.Session) (mapping.Session, error) {
		return st.Unassign(req.Field), nil
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, func(req fieldRequest, _ *docmodel.Model, st mapping.Session) (mapping.Session, error) {
		return st.Select(req.Field)
	})
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, func(req fieldRequest, _ *docmodel.Model, st mapping.Session) (mapping.Session, error) {
		return st.SetValue(req.Field, req.Value)
	})
}

func (s *Server) handleSessionGuess(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, chi.URLParam(r, "sessionID"))
	if sess == nil {
		return
	}
	sess.Update(func(_ *docmodel.Model, st mapping.Session) (mapping.Session, error) {
		return st.AutoGuess(), nil
	})
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSessionMapping(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, chi.URLParam(r, "sessionID"))
	if sess == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="mapping_config.json"`)
	if err := sess.Mapping().Save(w); err != nil {
		s.log.Error("write mapping", "session_id", sess.ID, "error", err)
	}
}
