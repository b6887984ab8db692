package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-pipeline/internal/pipeline/steps"
	"github.com/jonathan/resume-pipeline/internal/server/middleware"
	"github.com/jonathan/resume-pipeline/internal/types"
	"github.com/jonathan/resume-pipeline/internal/workflow"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// CreateDocumentResponse is returned when an upload is accepted.
type CreateDocumentResponse struct {
	Document *types.Document `json:"document"`
	Status   string          `json:"status"`
}

// UpdateMarkupRequest is the body of PUT /documents/{id}/markup.
type UpdateMarkupRequest struct {
	MarkupSource string `json:"markup_source"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query    string     `json:"query"`
	Location string     `json:"location"`
	UserID   *uuid.UUID `json:"user_id,omitempty"`
}

// SubmitEventResponse is returned by POST /events/{name}.
type SubmitEventResponse struct {
	EventID uuid.UUID `json:"event_id"`
	Name    string    `json:"name"`
}

// RunResponse is the run record plus the step progress of its function.
type RunResponse struct {
	Run      *workflow.RunRecord `json:"run"`
	Progress *steps.Progress     `json:"progress,omitempty"`
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var in types.NewDocument
	if err := decodeBody(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}
	if in.UserID == nil {
		if id, ok := middleware.GetUserID(r); ok {
			in.UserID = &id
		}
	}

	doc, err := s.svc.CreateDocument(r.Context(), in)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, CreateDocumentResponse{Document: doc, Status: string(doc.Status)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	doc, err := s.svc.GetDocument(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateMarkup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	var in UpdateMarkupRequest
	if err := decodeBody(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := s.svc.UpdateMarkup(r.Context(), id, in.MarkupSource); err != nil {
		s.handleError(w, r, err)
		return
	}
	doc, err := s.svc.GetDocument(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	artifact, err := s.svc.RequestCompile(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, artifact)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	artifact, err := s.svc.GetArtifact(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, artifact)
}

func (s *Server) handleArtifactPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	pdf, err := s.svc.ArtifactPDF(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Content-Disposition", `inline; filename="`+id.String()+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		s.log.Warn("failed to write pdf", "document_id", id, "error", err)
	}
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var in types.NewJobContext
	if err := decodeBody(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}
	if in.UserID == nil {
		if id, ok := middleware.GetUserID(r); ok {
			in.UserID = &id
		}
	}
	jc, err := s.svc.AttachJob(r.Context(), in)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, jc)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	jc, err := s.svc.GetJobContext(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, jc)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var in SearchRequest
	if err := decodeBody(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}
	if in.UserID == nil {
		if id, ok := middleware.GetUserID(r); ok {
			in.UserID = &id
		}
	}
	status, err := s.svc.Search(r.Context(), in.UserID, in.Query, in.Location)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	code := http.StatusOK
	if status.EventID != nil {
		code = http.StatusAccepted
	}
	s.jsonResponse(w, code, status)
}

func (s *Server) handleSearchResults(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		s.handleError(w, r, &ErrBadRequest{Field: "query", Message: "is required"})
		return
	}
	res, err := s.svc.SearchResults(r.Context(), query, r.URL.Query().Get("location"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleGoogleJobs(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		s.handleError(w, r, &ErrBadRequest{Field: "query", Message: "is required"})
		return
	}
	http.Redirect(w, r, s.svc.GoogleJobsURL(query, r.URL.Query().Get("location")), http.StatusFound)
}

func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.handleError(w, r, &ErrBadRequest{Field: "body", Message: err.Error()})
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		s.handleError(w, r, &ErrBadRequest{Field: "body", Message: "invalid JSON"})
		return
	}

	eventID, err := s.svc.Submit(r.Context(), name, json.RawMessage(body))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, SubmitEventResponse{EventID: eventID, Name: name})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	resp, err := s.runStatus(r, id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) runStatus(r *http.Request, id uuid.UUID) (*RunResponse, error) {
	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, workflow.ErrRunNotFound
	}
	resp := &RunResponse{Run: run}
	if _, ok := steps.Order[run.FunctionID]; ok {
		progress, err := steps.GetProgress(r.Context(), s.runs, id, run.FunctionID)
		if err != nil {
			return nil, err
		}
		resp.Progress = progress
	}
	return resp, nil
}

// pathID parses the {id} path parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrBadRequest{Field: "id", Message: "must be a UUID"}
	}
	return id, nil
}

// decodeBody decodes a bounded JSON body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrBadRequest{Field: "body", Message: "request body is required"}
		}
		return &ErrBadRequest{Field: "body", Message: err.Error()}
	}
	return nil
}
