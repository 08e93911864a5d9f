package domain

// SubjectType differentiates token holders and event actors.
type SubjectType string

const (
	// SubjectTypeService identifies dashboards and other machine callers.
	SubjectTypeService   SubjectType = "SERVICE"
	SubjectTypeStaff     SubjectType = "STAFF"
	SubjectTypeRequester SubjectType = "REQUESTER"
)
