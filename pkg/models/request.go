package models

// RunWorkflowRequest is the payload for triggering a workflow run over an
// explicit set of profiles and sites.
type RunWorkflowRequest struct {
	Profiles []SearchProfile `json:"profiles" validate:"required,min=1,dive"`
	Sites    []string        `json:"sites" validate:"required,min=1"`
}
