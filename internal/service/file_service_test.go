package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/icdev-br/pic-portal-api/internal/models"
	appErrors "github.com/icdev-br/pic-portal-api/pkg/errors"
	"github.com/icdev-br/pic-portal-api/pkg/storage"
)

func newFileFixture(t *testing.T) (*FileService, *certificateStoreStub, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	certificates := newCertificateStoreStub()
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	return NewFileService(certificates, signer, store, nil), certificates, store
}

func TestFileServiceCertificateLinkNotFound(t *testing.T) {
	svc, _, _ := newFileFixture(t)

	_, err := svc.CertificateLink(context.Background(), "proj-1")
	requireAppError(t, err, appErrors.ErrNotFound)
}

func TestFileServiceDownloadRoundTrip(t *testing.T) {
	svc, certificates, store := newFileFixture(t)

	_, err := store.Save("certificates/proj-1.pdf", []byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, certificates.Upsert(context.Background(), &models.Certificate{
		ProjectID: "proj-1",
		FileRef:   "certificates/proj-1.pdf",
		IssuedBy:  "coord-1",
	}))

	link, err := svc.CertificateLink(context.Background(), "proj-1")
	require.NoError(t, err)
	require.NotEmpty(t, link.Token)
	require.True(t, link.ExpiresAt.After(time.Now()))

	download, err := svc.ResolveDownload(context.Background(), link.Token)
	require.NoError(t, err)
	defer download.File.Close()

	data, err := io.ReadAll(download.File)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 test", string(data))
	require.Equal(t, "proj-1.pdf", download.Filename)
}

func TestFileServiceDownloadRejectsTamperedToken(t *testing.T) {
	svc, certificates, store := newFileFixture(t)

	_, err := store.Save("certificates/proj-1.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, certificates.Upsert(context.Background(), &models.Certificate{
		ProjectID: "proj-1",
		FileRef:   "certificates/proj-1.pdf",
		IssuedBy:  "coord-1",
	}))

	link, err := svc.CertificateLink(context.Background(), "proj-1")
	require.NoError(t, err)

	_, err = svc.ResolveDownload(context.Background(), link.Token+"x")
	requireAppError(t, err, appErrors.ErrForbidden)
}
