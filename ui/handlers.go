package ui

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fermload/domain/core"
	"fermload/domain/run"
	"fermload/internal/errors"
)

const defaultPageSize = 50

// resourceView is a stored resource with its tags decoded
type resourceView struct {
	Name    string          `json:"name"`
	Batch   string          `json:"batch"`
	Sample  string          `json:"sample"`
	Plate   string          `json:"plate,omitempty"`
	Medium  string          `json:"medium,omitempty"`
	Missing string          `json:"missing_value,omitempty"`
	Rows    int             `json:"rows"`
	Tags    json.RawMessage `json:"tags,omitempty"`
}

type runDetail struct {
	*run.Run
	Resources []resourceView `json:"resources"`
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := a.repo.ListRuns(r.Context(), defaultPageSize, 0)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, "runs.html", runs); err != nil {
		a.log.Error("template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	offset := queryInt(r, "offset", 0)
	runs, err := a.repo.ListRuns(r.Context(), limit, offset)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*run.Run{}
	}
	a.writeJSON(w, http.StatusOK, runs)
}

func (a *App) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := a.runID(w, r)
	if !ok {
		return
	}
	rn, err := a.repo.GetRun(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	records, err := a.repo.ListResources(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}

	detail := runDetail{Run: rn, Resources: make([]resourceView, 0, len(records))}
	for _, rec := range records {
		v := resourceView{
			Name:    rec.Name,
			Batch:   rec.Batch,
			Sample:  rec.Sample,
			Plate:   rec.Plate,
			Medium:  rec.Medium,
			Missing: rec.Missing,
			Rows:    rec.Rows,
		}
		if json.Valid([]byte(rec.Tags)) {
			v.Tags = json.RawMessage(rec.Tags)
		}
		detail.Resources = append(detail.Resources, v)
	}
	a.writeJSON(w, http.StatusOK, detail)
}

func (a *App) handleResourceCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := a.runID(w, r)
	if !ok {
		return
	}
	rec, err := a.repo.GetResource(r.Context(), id, chi.URLParam(r, "name"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+rec.Name+".csv\"")
	w.Write(rec.CSV)
}

func (a *App) handleVenn(w http.ResponseWriter, r *http.Request) {
	a.serveArtifact(w, r, run.ArtifactVennPNG)
}

// handleReport serves the HTML report, or markdown with ?format=md
func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	kind := run.ArtifactReportHTML
	if r.URL.Query().Get("format") == "md" {
		kind = run.ArtifactReportMD
	}
	a.serveArtifact(w, r, kind)
}

func (a *App) handleArtifact(w http.ResponseWriter, r *http.Request) {
	kind := run.ArtifactKind(chi.URLParam(r, "kind"))
	switch kind {
	case run.ArtifactVennPNG, run.ArtifactReportMD, run.ArtifactReportHTML, run.ArtifactSummaryCSV, run.ArtifactMediumCSV:
		a.serveArtifact(w, r, kind)
	default:
		a.writeError(w, errors.InvalidInput("unknown artifact kind "+string(kind)))
	}
}

func (a *App) serveArtifact(w http.ResponseWriter, r *http.Request, kind run.ArtifactKind) {
	id, ok := a.runID(w, r)
	if !ok {
		return
	}
	art, err := a.repo.GetArtifact(r.Context(), id, kind)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", kind.ContentType())
	w.Write(art.Content)
}

func (a *App) runID(w http.ResponseWriter, r *http.Request) (core.RunID, bool) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, errors.InvalidInput(err.Error()))
		return "", false
	}
	return id, true
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("encode response: %v", err)
	}
}

// writeError maps application error codes to HTTP statuses
func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeValidationError:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		a.log.Error("request failed: %v", err)
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}
