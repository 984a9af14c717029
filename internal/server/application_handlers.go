package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"incubator/internal/analyzer"
	"incubator/internal/email"
	"incubator/internal/incubator"
)

// Uploads are capped at 20 MiB, which is generous for a business-plan PDF.
const maxUploadBytes = 20 << 20

func (s *Server) handleListMyApplications(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	apps, err := s.Applications.ListForUser(r.Context(), sess.User.ID)
	if err != nil {
		log.Printf("list applications: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load applications")
		return
	}
	writeJSON(w, http.StatusOK, viewApplications(apps))
}

// handleSubmitApplication accepts a multipart form with the business name,
// contact email and the plan PDF. The file is stored under the upload
// directory with a generated name; the client's filename is only kept for
// display.
func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload; the PDF must be 20 MB or smaller")
		return
	}

	businessName := strings.TrimSpace(r.FormValue("businessName"))
	contactEmail := strings.TrimSpace(r.FormValue("contactEmail"))
	if businessName == "" {
		writeError(w, http.StatusBadRequest, "Business name is required")
		return
	}
	if !validateEmail(contactEmail) {
		writeError(w, http.StatusBadRequest, "Invalid contact email")
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		writeError(w, http.StatusBadRequest, "A PDF file is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "Only PDF files are accepted")
		return
	}

	storedPath, err := s.storeUpload(file)
	if err != nil {
		log.Printf("submit application: store upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to store the uploaded file")
		return
	}

	userID := sess.User.ID
	app, err := s.Applications.Create(r.Context(), &userID, businessName, contactEmail, header.Filename, storedPath)
	if err != nil {
		_ = os.Remove(storedPath)
		log.Printf("submit application: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to submit application")
		return
	}

	writeJSON(w, http.StatusCreated, viewApplication(app))
}

func (s *Server) storeUpload(src io.Reader) (string, error) {
	if err := os.MkdirAll(s.Config.UploadDir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(s.Config.UploadDir, uuid.NewString()+".pdf")
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func (s *Server) handleAdminListApplications(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !incubator.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "Unknown status filter")
		return
	}

	apps, err := s.Applications.List(r.Context(), status)
	if err != nil {
		log.Printf("admin list applications: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load applications")
		return
	}
	writeJSON(w, http.StatusOK, viewApplications(apps))
}

func (s *Server) handleAdminGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.Applications.Find(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Application not found")
		return
	case err != nil:
		log.Printf("admin get application: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load application")
		return
	}

	report, err := s.Applications.LatestReport(r.Context(), app.ID)
	if err != nil {
		log.Printf("admin get application: report: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load application")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"application": viewApplication(app),
		"report":      viewReport(report),
	})
}

type updateApplicationRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (s *Server) handleAdminUpdateApplication(w http.ResponseWriter, r *http.Request) {
	var req updateApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !incubator.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Unknown status")
		return
	}

	app, err := s.Applications.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.Notes)
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Application not found")
		return
	case err != nil:
		log.Printf("admin update application: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update application")
		return
	}
	writeJSON(w, http.StatusOK, viewApplication(app))
}

// handleAdminDeleteApplication removes the application row (reports cascade)
// and its uploaded PDF.
func (s *Server) handleAdminDeleteApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	app, err := s.Applications.Find(ctx, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Application not found")
		return
	case err != nil:
		log.Printf("admin delete application: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete application")
		return
	}

	if err := s.Applications.Delete(ctx, app.ID); err != nil {
		log.Printf("admin delete application: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete application")
		return
	}
	if err := os.Remove(app.PDFPath); err != nil && !os.IsNotExist(err) {
		log.Printf("admin delete application: remove %s: %v", app.PDFPath, err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Application deleted."})
}

// handleAdminAnalyzeApplication runs the external analyzer against the
// stored PDF and records the outcome. An analyzer crash is recorded too:
// the application flips to failed with the subprocess diagnostics in the
// notes.
func (s *Server) handleAdminAnalyzeApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	app, err := s.Applications.Find(ctx, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Application not found")
		return
	case err != nil:
		log.Printf("analyze application: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load application")
		return
	}

	result, err := s.Analyzer.Submit(ctx, app.PDFPath, app.BusinessName, app.ContactEmail)
	if err != nil {
		var failure *analyzer.Failure
		notes := fmt.Sprintf("analysis failed: %v", err)
		if errors.As(err, &failure) {
			notes = fmt.Sprintf("analyzer exited with code %d: %s", failure.ExitCode, failure.Stderr)
		}
		log.Printf("analyze application %s: %v", app.ID, err)
		if _, uerr := s.Applications.UpdateStatus(ctx, app.ID, incubator.StatusFailed, notes); uerr != nil {
			log.Printf("analyze application %s: record failure: %v", app.ID, uerr)
		}
		writeError(w, http.StatusBadGateway, "Analysis failed")
		return
	}

	report := &incubator.AnalysisReport{
		ApplicationID:     app.ID,
		Model:             result.Model,
		TotalScore:        result.TotalScore,
		Eligible:          result.Eligible,
		Confidence:        result.Confidence,
		Summary:           result.Summary,
		Criteria:          result.Criteria,
		Recommendations:   result.Recommendations,
		ProcessingSeconds: result.ProcessingSeconds,
	}
	stored, err := s.Applications.StoreReport(ctx, report, incubator.StatusAnalyzed)
	if err != nil {
		log.Printf("analyze application %s: store report: %v", app.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to store analysis report")
		return
	}

	writeJSON(w, http.StatusOK, viewReport(stored))
}

// handleAdminSendResult mails the latest analysis outcome to the applicant.
func (s *Server) handleAdminSendResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	app, err := s.Applications.Find(ctx, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Application not found")
		return
	case err != nil:
		log.Printf("send result: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load application")
		return
	}

	report, err := s.Applications.LatestReport(ctx, app.ID)
	if err != nil {
		log.Printf("send result: report: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load analysis report")
		return
	}
	if report == nil {
		writeError(w, http.StatusBadRequest, "This application has not been analyzed yet")
		return
	}

	subject, text, html := email.AnalysisResultEmail(app.BusinessName, report.TotalScore, report.Eligible)
	if err := s.Mailer.Send(ctx, app.ContactEmail, subject, text, html); err != nil {
		log.Printf("send result: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to send the result email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Result email sent."})
}
