package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"call-insights-go/internal/dataset"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/store"
	"call-insights-go/internal/summarizer"
	"call-insights-go/internal/types"
)

//go:embed templates/index.html
var templateFS embed.FS

const (
	maxBodyBytes      = 1 << 20
	defaultBatchLimit = 5
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (types.Result, error)
	AnalyzeBatch(ctx context.Context, refs, transcripts []string) []processor.BatchItem
}

type RecordReader interface {
	ReadAll() ([]types.CallRecord, error)
}

type Server struct {
	router      *chi.Mux
	analyzer    Analyzer
	records     RecordReader
	datasetPath string
	tmpl        *template.Template
	log         *logger.Logger
}

type pageData struct {
	Input  string
	Result *types.Result
}

type analyzeRequest struct {
	Transcript string `json:"transcript"`
}

func NewServer(a Analyzer, records RecordReader, datasetPath string, log *logger.Logger) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		analyzer:    a,
		records:     records,
		datasetPath: datasetPath,
		tmpl:        template.Must(template.ParseFS(templateFS, "templates/index.html")),
		log:         log.Component("web"),
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.health)
	s.router.Get("/", s.form)
	s.router.Post("/", s.submitForm)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.analyze)
		r.Post("/batch", s.batch)
		r.Get("/records/export.xlsx", s.exportRecords)
	})
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// requestLogger tags each request with an id, threads it into the context and logs the outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := logger.RequestID(r)
		r.Header.Set("X-Request-ID", reqID)
		w.Header().Set("X-Request-ID", reqID)
		r = r.WithContext(processor.WithRequestID(r.Context(), reqID))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.WithRequest(r).
			WithField("status", ww.Status()).
			WithField("bytes", ww.BytesWritten()).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request handled")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "ok")
}

func (s *Server) form(w http.ResponseWriter, r *http.Request) {
	s.render(w, pageData{})
}

func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	input := r.PostForm.Get("transcript")

	// the form always renders; errors show up as banners on the page
	res, err := s.analyzer.Analyze(r.Context(), input)
	if err != nil && !errors.Is(err, processor.ErrEmptyTranscript) {
		s.log.WithRequest(r).WithField("error", err.Error()).Warn("analysis finished with error")
	}
	s.render(w, pageData{Input: input, Result: &res})
}

func (s *Server) render(w http.ResponseWriter, data pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.log.WithError(err).Error("template render failed")
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), req.Transcript)
	writeJSON(w, statusFor(err), res)
}

// statusFor maps pipeline errors to HTTP codes. A save failure still returns the fields.
func statusFor(err error) int {
	var te *summarizer.TransportError
	var me *summarizer.MalformedResponseError
	var se *store.StorageError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, processor.ErrEmptyTranscript):
		return http.StatusBadRequest
	case errors.As(err, &te), errors.As(err, &me):
		return http.StatusBadGateway
	case errors.As(err, &se):
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) batch(w http.ResponseWriter, r *http.Request) {
	if s.datasetPath == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "DATASET_PATH not configured"})
		return
	}
	limit := defaultBatchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	rows, err := dataset.Load(s.datasetPath)
	if err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("dataset load error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "dataset load error"})
		return
	}
	refs, transcripts := dataset.Transcripts(rows, limit)
	s.log.WithRequest(r).WithField("rows", len(transcripts)).Info("batch started")
	writeJSON(w, http.StatusOK, s.analyzer.AnalyzeBatch(r.Context(), refs, transcripts))
}

func (s *Server) exportRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.ReadAll()
	if err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("read records failed")
		http.Error(w, "could not read records", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := store.ExportXLSX(&buf, records); err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("xlsx export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="call_analysis.xlsx"`)
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
