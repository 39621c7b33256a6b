package dto

// SubmitProposalRequest is the payload for the initial project proposal.
type SubmitProposalRequest struct {
	Title           string `json:"title" validate:"required"`
	Area            string `json:"area" validate:"required"`
	AdvisorID       string `json:"advisor_id" validate:"required"`
	Summary         string `json:"summary" validate:"required"`
	Objectives      string `json:"objectives"`
	Methodology     string `json:"methodology"`
	Campus          string `json:"campus"`
	ProposalFileRef string `json:"proposal_file_ref"`
}

// ResubmitProposalRequest re-opens review for a rejected proposal. Title and
// advisor may change; empty fields keep their previous values.
type ResubmitProposalRequest struct {
	Title           string `json:"title"`
	Area            string `json:"area"`
	AdvisorID       string `json:"advisor_id"`
	Summary         string `json:"summary"`
	Objectives      string `json:"objectives"`
	Methodology     string `json:"methodology"`
	ProposalFileRef string `json:"proposal_file_ref"`
}

// DecideRequest carries an approval-gate decision. Approve is a pointer so
// an explicit false survives binding.
type DecideRequest struct {
	Approve  *bool  `json:"approve" validate:"required"`
	Feedback string `json:"feedback"`
}
