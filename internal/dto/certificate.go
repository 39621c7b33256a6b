package dto

import "time"

// IssueCertificateRequest attaches the issued certificate file. When FileRef
// is empty a standard certificate PDF is generated.
type IssueCertificateRequest struct {
	FileRef string `json:"file_ref"`
}

// DownloadLink is a time-limited signed link for a stored artifact.
type DownloadLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
