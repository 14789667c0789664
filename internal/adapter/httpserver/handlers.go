package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/excel-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/excel-interviewer/internal/config"
	"github.com/fairyhunter13/excel-interviewer/internal/domain"
	"github.com/fairyhunter13/excel-interviewer/internal/usecase"
	"github.com/gabriel-vasile/mimetype"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg      config.Config
	Sessions *usecase.Registry
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, sessions *usecase.Registry) *Server {
	return &Server{Cfg: cfg, Sessions: sessions}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// allowedExt enforces an allowlist for workbook uploads: .xlsx, .xlsm, .xls
func allowedExt(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".xlsx") || strings.HasSuffix(n, ".xlsm") || strings.HasSuffix(n, ".xls")
}

func allowedMIME(m string) bool {
	m = strings.ToLower(m)
	switch {
	case strings.HasPrefix(m, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return true
	case strings.HasPrefix(m, "application/vnd.ms-excel"):
		return true
	case strings.HasPrefix(m, "application/zip"):
		// xlsx is a zip container; some detectors stop at the container type.
		return true
	}
	return false
}

func acceptable(r *http.Request) bool {
	a := r.Header.Get("Accept")
	return a == "" || a == "*/*" || strings.Contains(a, "application/json")
}

func notAcceptable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
		Code:    "INVALID_ARGUMENT",
		Message: "not acceptable",
		Details: map[string]any{"accept": r.Header.Get("Accept")},
	}})
}

type startResponse struct {
	SessionID string `json:"session_id"`
	usecase.TurnResult
}

// StartHandler creates a new interview session and returns the introduction.
func (s *Server) StartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptable(r) {
			notAcceptable(w, r)
			return
		}
		sess := s.Sessions.Create()
		observability.InterviewsStartedTotal.Inc()
		LoggerFrom(r).Info("interview started",
			"session_id", sess.ID(),
			"active_sessions", s.Sessions.Count())
		writeJSON(w, http.StatusCreated, startResponse{SessionID: sess.ID(), TurnResult: sess.Start()})
	}
}

// TurnHandler submits one candidate turn: the name during the introduction,
// an answer (optionally with a workbook file) while questioning.
//
// It accepts either application/json {"answer": "..."} or multipart/form-data
// with an "answer" field and an optional "file" part.
func (s *Server) TurnHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptable(r) {
			notAcceptable(w, r)
			return
		}
		sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		var answer string
		var file []byte
		if strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			answer, file, err = s.parseMultipartTurn(w, r)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
		} else {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
			var req struct {
				Answer string `json:"answer" validate:"max=20000"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
				return
			}
			if err := getValidator().Struct(req); err != nil {
				writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
				return
			}
			answer = req.Answer
		}

		res, err := sess.ProcessTurn(r.Context(), answer, file)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		observability.InterviewTurnsTotal.WithLabelValues(string(res.Phase)).Inc()
		if res.Phase == domain.PhaseCompleted && res.Evaluation != nil {
			observability.InterviewsCompletedTotal.Inc()
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// parseMultipartTurn extracts the answer field and the optional workbook
// upload, enforcing the size cap and the spreadsheet MIME allowlist.
func (s *Server) parseMultipartTurn(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "too large") {
			return "", nil, fmt.Errorf("%w: payload exceeds %d MB", domain.ErrInvalidArgument, s.Cfg.MaxUploadMB)
		}
		return "", nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	answer := r.FormValue("answer")

	f, hdr, err := r.FormFile("file")
	if err == http.ErrMissingFile {
		return answer, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: file part: %v", domain.ErrInvalidArgument, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("%w: file read: %v", domain.ErrInvalidArgument, err)
	}
	if !allowedExt(hdr.Filename) {
		return "", nil, fmt.Errorf("%w: unsupported workbook extension: %s", domain.ErrInvalidArgument, hdr.Filename)
	}
	if m := mimetype.Detect(data); !allowedMIME(m.String()) {
		return "", nil, fmt.Errorf("%w: unsupported workbook content type: %s", domain.ErrInvalidArgument, m.String())
	}
	return answer, data, nil
}

// SummaryHandler returns the current session progress.
func (s *Server) SummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, sess.Summary())
	}
}

// ReportHandler builds and returns the full performance report.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		report, err := usecase.BuildReport(sess.Snapshot())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if r.URL.Query().Get("download") == "1" {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "interview_report_"+sess.ID()+".json"))
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// ReadyzHandler reports readiness. The service carries no external stores,
// so readiness reduces to the process being able to serve sessions.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "ready",
			"active_sessions": s.Sessions.Count(),
		})
	}
}
