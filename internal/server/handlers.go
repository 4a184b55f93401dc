// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/pdiddy/report-assembler/internal/insertset"
	"github.com/pdiddy/report-assembler/internal/pipeline"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// maxBody bounds a submitted request.
const maxBody = 1 << 20

type sectionRequest struct {
	Label    types.Label    `json:"label"`
	Files    []string       `json:"files,omitempty"`
	Dir      string         `json:"dir,omitempty"`
	Sort     types.SortMode `json:"sort,omitempty"`
	Priority []string       `json:"priority,omitempty"`
}

type submitRequest struct {
	Source   string           `json:"source"`
	Output   string           `json:"output,omitempty"`
	Sections []sectionRequest `json:"sections"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "report-assembler"})
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "request body must be application/json")
		return
	}

	var req submitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	run, err := s.buildRun(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.Submit(run)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, pipeline.ErrInputValidation):
			status = http.StatusBadRequest
		case errors.Is(err, ErrRunConflict):
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set("Location", "/api/v1/runs/"+id)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

// buildRun turns a request into a pipeline run, collecting the PDFs of
// directory sections. Relative directories resolve against the source's
// directory.
func (s *Server) buildRun(req submitRequest) (pipeline.Run, error) {
	run := pipeline.Run{Source: req.Source, Output: req.Output}
	base := filepath.Dir(req.Source)

	for i, sec := range req.Sections {
		switch {
		case sec.Dir != "" && len(sec.Files) > 0:
			return pipeline.Run{}, fmt.Errorf("section %d: give files or dir, not both", i+1)
		case sec.Dir != "":
			sets, err := insertset.Collect(base, []types.SectionConfig{{
				Label: sec.Label, Dir: sec.Dir, Sort: sec.Sort, Priority: sec.Priority,
			}}, s.logger)
			if err != nil {
				return pipeline.Run{}, err
			}
			run.Sections = append(run.Sections, sets[0])
		default:
			run.Sections = append(run.Sections, types.InsertSet{Label: sec.Label, Files: sec.Files})
		}
	}
	return run, nil
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, ok := s.Run(id)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listRuns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Runs())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
