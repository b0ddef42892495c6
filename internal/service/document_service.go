package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"pdfchat-be/internal/dto"
	"pdfchat-be/internal/pkg/logger"
	"pdfchat-be/pkg/rag"

	"github.com/google/uuid"
)

const uploadTimestamp = "20060102_150405"

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type IDocumentService interface {
	Upload(ctx context.Context, sessionID, filename string, src io.Reader) (*dto.UploadPDFResponse, error)
	Status(sessionID string) *dto.PDFStatusResponse
	Remove(ctx context.Context, sessionID string) bool
}

type documentService struct {
	registry  SessionRegistry
	uploadDir string
	logger    logger.ILogger
	now       func() time.Time
}

func NewDocumentService(registry SessionRegistry, uploadDir string, log logger.ILogger) IDocumentService {
	return &documentService{
		registry:  registry,
		uploadDir: uploadDir,
		logger:    log,
		now:       time.Now,
	}
}

// IsPDFFilename only looks at the extension; the loader rejects non-PDF content.
func IsPDFFilename(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// SanitizeFilename keeps a safe base name: no directories, only
// [A-Za-z0-9._-], no leading dots.
func SanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = unsafeFilename.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, "._")
	if name == "" || strings.EqualFold(name, "pdf") {
		return "document.pdf"
	}
	return name
}

// Upload stores the file as <yyyymmdd_hhmmss>_<random>_<sanitized name> and attaches it
// to the session. The stored file is removed again if indexing fails.
func (s *documentService) Upload(ctx context.Context, sessionID, filename string, src io.Reader) (*dto.UploadPDFResponse, error) {
	if src == nil || filename == "" {
		return nil, &rag.DocumentLoadError{Path: filename, Reason: "no file provided"}
	}
	if !IsPDFFilename(filename) {
		return nil, &rag.DocumentLoadError{Path: filename, Reason: "file is not a PDF"}
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	// the random part keeps same-second uploads of the same name apart
	stored := fmt.Sprintf("%s_%s_%s", s.now().Format(uploadTimestamp), uuid.NewString()[:8], SanitizeFilename(filename))
	path := filepath.Join(s.uploadDir, stored)

	if err := writeFile(path, src); err != nil {
		return nil, err
	}

	info, err := s.registry.AttachDocument(ctx, sessionID, path, filename)
	if err != nil {
		_ = os.Remove(path)
		s.logger.Warn("DOCUMENT", "PDF could not be attached", map[string]interface{}{
			"session_id": sessionID,
			"filename":   filename,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.logger.Info("DOCUMENT", "PDF uploaded", map[string]interface{}{
		"session_id": sessionID,
		"filename":   filename,
		"stored_as":  stored,
		"chunks":     info.Chunks,
		"skipped":    info.Skipped,
	})

	return &dto.UploadPDFResponse{
		Message:   "PDF uploaded and processed successfully",
		Filename:  filename,
		SessionId: sessionID,
		Chunks:    info.Chunks,
	}, nil
}

func writeFile(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to store upload: %w", err)
	}
	return f.Close()
}

func (s *documentService) Status(sessionID string) *dto.PDFStatusResponse {
	info, ok := s.registry.Document(sessionID)
	if !ok {
		return &dto.PDFStatusResponse{HasPDF: false}
	}
	return &dto.PDFStatusResponse{
		HasPDF:    true,
		SessionId: sessionID,
		Filename:  info.Filename,
	}
}

func (s *documentService) Remove(ctx context.Context, sessionID string) bool {
	removed := s.registry.DetachDocument(ctx, sessionID)
	if removed {
		s.logger.Info("DOCUMENT", "PDF removed", map[string]interface{}{"session_id": sessionID})
	}
	return removed
}
