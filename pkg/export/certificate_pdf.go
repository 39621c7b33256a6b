package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries the fields rendered onto a completion certificate.
type CertificateData struct {
	StudentName  string
	ProjectTitle string
	AdvisorName  string
	ProgramName  string
	Institution  string
	Year         int
	IssuedAt     time.Time
}

// CertificateRenderer produces completion certificate PDFs.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a certificate renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render creates a landscape A4 certificate document.
func (r *CertificateRenderer) Render(data CertificateData) ([]byte, error) {
	if data.StudentName == "" || data.ProjectTitle == "" {
		return nil, fmt.Errorf("certificate requires student name and project title")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(25, 30, 25)
	pdf.AddPage()

	if data.Institution != "" {
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 8, data.Institution, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 26)
	pdf.CellFormat(0, 14, "CERTIFICADO", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	program := data.ProgramName
	if program == "" {
		program = "Programa de Iniciacao Cientifica"
	}

	pdf.SetFont("Arial", "", 13)
	body := fmt.Sprintf("Certificamos que %s concluiu o projeto de pesquisa \"%s\" no ambito do %s", data.StudentName, data.ProjectTitle, program)
	if data.Year > 0 {
		body = fmt.Sprintf("%s, ciclo %d", body, data.Year)
	}
	if data.AdvisorName != "" {
		body = fmt.Sprintf("%s, sob orientacao de %s", body, data.AdvisorName)
	}
	body += "."
	pdf.MultiCell(0, 8, body, "", "C", false)
	pdf.Ln(12)

	issued := data.IssuedAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}
	pdf.SetFont("Arial", "I", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Emitido em %s", issued.Format("02/01/2006")), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
