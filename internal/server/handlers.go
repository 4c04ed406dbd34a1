package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/chemlayout/pkg/buildinfo"
	"github.com/matzehuels/chemlayout/pkg/errors"
	chemio "github.com/matzehuels/chemlayout/pkg/io"
	"github.com/matzehuels/chemlayout/pkg/pipeline"
	"github.com/matzehuels/chemlayout/pkg/render"
)

// CacheHeader reports whether a response was served from the cache.
const CacheHeader = "X-Cache"

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// TemplateInfo describes one catalog entry in GET /v1/templates.
type TemplateInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Atoms       int    `json:"atoms"`
	Bonds       int    `json:"bonds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	opts := s.defaults
	if err := opts.ValidateForLayout(); err != nil {
		s.writeError(w, r, err)
		return
	}
	out := []TemplateInfo{}
	for _, t := range opts.Templates.Templates() {
		out = append(out, TemplateInfo{
			Name:        t.Name,
			Description: t.Description,
			Atoms:       t.Size(),
			Bonds:       len(t.Edges),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.runner.Read(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, hit, err := s.runner.LayoutWithCacheInfo(r.Context(), m, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := chemio.WriteJSON(m, report, &buf); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(CacheHeader, cacheStatus(hit))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidFormat, err, "output format"))
		return
	}
	opts, err := s.requestOptions(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Formats = []string{string(format)}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set(CacheHeader, cacheStatus(result.CacheInfo.RenderHit))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Artifacts[string(format)])
}

// requestOptions reads the body and applies the query parameters on top of
// the server defaults.
func (s *Server) requestOptions(w http.ResponseWriter, r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	opts.Path = ""
	opts.Logger = nil

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, pipeline.MaxInputSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return opts, errors.New(errors.ErrCodeInvalidInput, "request body too large (max %d bytes)", tooLarge.Limit)
		}
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	if len(body) == 0 {
		return opts, errors.New(errors.ErrCodeInvalidInput, "request body is empty")
	}
	opts.Input = body

	q := r.URL.Query()
	if v := q.Get("input_format"); v != "" {
		opts.InputFormat = v
	}
	floats := map[string]*float64{
		"bond_length": &opts.BondLength,
		"scale":       &opts.Scale,
	}
	for name, dst := range floats {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "%s: not a number: %q", name, v)
			}
			*dst = f
		}
	}
	ints := map[string]*int{
		"max_collision_passes":  &opts.MaxCollisionPasses,
		"max_refine_iterations": &opts.MaxRefineIterations,
	}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "%s: not an integer: %q", name, v)
			}
			*dst = n
		}
	}
	bools := map[string]*bool{
		"force":   &opts.Force,
		"carbons": &opts.ShowCarbons,
		"indices": &opts.ShowIndices,
		"refresh": &opts.Refresh,
	}
	for name, dst := range bools {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "%s: not a boolean: %q", name, v)
			}
			*dst = b
		}
	}
	return opts, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if errors.GetCode(err) == "" && r.Context().Err() != nil {
		status = http.StatusServiceUnavailable
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	msg := detail(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "id", requestIDFrom(r.Context()), "path", r.URL.Path, "error", err)
		msg = "internal error"
	} else {
		s.logger.Debug("request rejected", "id", requestIDFrom(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// detail is the user message of err followed by its cause.
func detail(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return errors.UserMessage(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
