package models

import "time"

// Stage is the single current phase of a project's lifecycle.
type Stage string

// Lifecycle stages in forward order. Monthly-report stages sit between the
// proposal presentation and the partial report; progression through them is
// operational (coordinator stage edits), while the gated stages advance only
// on dual approval or presentation evaluation.
const (
	StageEnvioProposta        Stage = "envio_proposta"
	StageApresentacaoProposta Stage = "apresentacao_proposta"
	StageRelatorioMensal1     Stage = "relatorio_mensal_1"
	StageRelatorioMensal2     Stage = "relatorio_mensal_2"
	StageRelatorioMensal3     Stage = "relatorio_mensal_3"
	StageRelatorioMensal4     Stage = "relatorio_mensal_4"
	StageRelatorioMensal5     Stage = "relatorio_mensal_5"
	StageRelatorioParcial     Stage = "relatorio_parcial"
	StageApresentacaoAmostra  Stage = "apresentacao_amostra"
	StageArtigoFinal          Stage = "artigo_final"
	StageConcluido            Stage = "concluido"
)

var stageOrder = []Stage{
	StageEnvioProposta,
	StageApresentacaoProposta,
	StageRelatorioMensal1,
	StageRelatorioMensal2,
	StageRelatorioMensal3,
	StageRelatorioMensal4,
	StageRelatorioMensal5,
	StageRelatorioParcial,
	StageApresentacaoAmostra,
	StageArtigoFinal,
	StageConcluido,
}

var monthlyStages = []Stage{
	StageRelatorioMensal1,
	StageRelatorioMensal2,
	StageRelatorioMensal3,
	StageRelatorioMensal4,
	StageRelatorioMensal5,
}

// Stages returns the lifecycle stages in forward order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Index returns the ordinal position of the stage, or -1 when unknown.
func (s Stage) Index() int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Valid reports whether the stage is part of the lifecycle.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// MonthlySlot returns the 1-based monthly-report slot for the stage.
func (s Stage) MonthlySlot() (int, bool) {
	for i, stage := range monthlyStages {
		if stage == s {
			return i + 1, true
		}
	}
	return 0, false
}

// MonthlyStage returns the stage for a 1-based monthly-report slot.
func MonthlyStage(slot int) (Stage, bool) {
	if slot < 1 || slot > len(monthlyStages) {
		return "", false
	}
	return monthlyStages[slot-1], true
}

// MonthlySlotCount is the number of monthly-report slots in a cycle.
const MonthlySlotCount = 5

// ProjectStatus is the administrative sub-status of a project.
type ProjectStatus string

const (
	// ProjectStatusAtivo marks a project on the normal forward path.
	ProjectStatusAtivo ProjectStatus = "ativo"
	// ProjectStatusPropostaRejeitada marks a proposal rejected by either
	// reviewer; the student may resubmit against the same project.
	ProjectStatusPropostaRejeitada ProjectStatus = "proposta_rejeitada"
	// ProjectStatusApresentacaoRejeitada marks a failed proposal defense;
	// the student may reset the enrollment.
	ProjectStatusApresentacaoRejeitada ProjectStatus = "apresentacao_rejeitada"
	// ProjectStatusEncerrado marks a project released by a student reset.
	ProjectStatusEncerrado ProjectStatus = "encerrado"
)

// Project is the aggregate root of the research lifecycle.
type Project struct {
	ID              string         `db:"id" json:"id"`
	StudentID       string         `db:"student_id" json:"student_id"`
	AdvisorID       *string        `db:"advisor_id" json:"advisor_id,omitempty"`
	Title           string         `db:"title" json:"title"`
	Area            string         `db:"area" json:"area"`
	Summary         string         `db:"summary" json:"summary"`
	Objectives      string         `db:"objectives" json:"objectives"`
	Methodology     string         `db:"methodology" json:"methodology"`
	ProposalFileRef *string        `db:"proposal_file_ref" json:"proposal_file_ref,omitempty"`
	Stage           Stage          `db:"stage" json:"stage"`
	Status          ProjectStatus  `db:"status" json:"status"`
	ProposalStatus  DecisionStatus `db:"proposal_status" json:"proposal_status"`
	EnrollmentYear  int            `db:"enrollment_year" json:"enrollment_year"`
	Campus          string         `db:"campus" json:"campus"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the project no longer blocks a new enrollment.
func (p *Project) Terminal() bool {
	return p.Status == ProjectStatusEncerrado || p.Stage == StageConcluido
}

// ProjectFilter captures filtering criteria for listing projects.
type ProjectFilter struct {
	StudentID string
	AdvisorID string
	Stage     Stage
	Status    ProjectStatus
	Year      int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
