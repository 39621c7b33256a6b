package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
)

type downloadSigner interface {
	Generate(artifactID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (artifactID, relPath string, expiresAt time.Time, err error)
}

type downloadStorage interface {
	Open(filename string) (*os.File, error)
}

// FileDownload aggregates resolved download data.
type FileDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// FileService hands out time-limited download links for stored artifacts and
// resolves them back to files. Tokens are self-contained, so the download
// endpoint needs no session.
type FileService struct {
	certificates certificateStore
	signer       downloadSigner
	storage      downloadStorage
	logger       *zap.Logger
}

// NewFileService constructs the service.
func NewFileService(certificates certificateStore, signer downloadSigner, storage downloadStorage, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{certificates: certificates, signer: signer, storage: storage, logger: logger}
}

// CertificateLink returns a signed download link for the project certificate.
func (s *FileService) CertificateLink(ctx context.Context, projectID string) (*dto.DownloadLink, error) {
	certificate, err := s.certificates.GetByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}

	token, expiresAt, err := s.signer.Generate(certificate.ID, certificate.FileRef)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &dto.DownloadLink{Token: token, URL: "/files/" + token, ExpiresAt: expiresAt}, nil
}

// ResolveDownload validates a token and opens the referenced file.
func (s *FileService) ResolveDownload(ctx context.Context, token string) (*FileDownload, error) {
	_, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}

	return &FileDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		ExpiresAt: expiresAt,
	}, nil
}
