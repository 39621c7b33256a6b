package models

import "time"

// DeliverableKind enumerates the reviewable artifact kinds.
type DeliverableKind string

const (
	DeliverableRelatorioParcial    DeliverableKind = "relatorio_parcial"
	DeliverableApresentacaoAmostra DeliverableKind = "apresentacao_amostra"
	DeliverableArtigoFinal         DeliverableKind = "artigo_final"
)

// Valid reports whether the kind is known.
func (k DeliverableKind) Valid() bool {
	switch k {
	case DeliverableRelatorioParcial, DeliverableApresentacaoAmostra, DeliverableArtigoFinal:
		return true
	}
	return false
}

// ReviewStage returns the lifecycle stage during which this kind is reviewed.
func (k DeliverableKind) ReviewStage() (Stage, bool) {
	switch k {
	case DeliverableRelatorioParcial:
		return StageRelatorioParcial, true
	case DeliverableApresentacaoAmostra:
		return StageApresentacaoAmostra, true
	case DeliverableArtigoFinal:
		return StageArtigoFinal, true
	}
	return "", false
}

// Deliverable is a submitted artifact awaiting dual review. A rejected
// deliverable stays on record; resubmission creates a new row.
type Deliverable struct {
	ID          string          `db:"id" json:"id"`
	ProjectID   string          `db:"project_id" json:"project_id"`
	Kind        DeliverableKind `db:"kind" json:"kind"`
	FileRef     string          `db:"file_ref" json:"file_ref"`
	Description string          `db:"description" json:"description"`
	SubmittedAt time.Time       `db:"submitted_at" json:"submitted_at"`
}

// DeliverableDetail pairs a deliverable with its approval gate.
type DeliverableDetail struct {
	Deliverable
	Approval ApprovalRecord `json:"approval"`
}
