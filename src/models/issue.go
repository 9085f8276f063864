package models

// IssueType classifies a diagnostic emitted by the ingestion pipeline.
type IssueType string

const (
	IssueInfo     IssueType = "INFO"
	IssueWarning  IssueType = "WARNING"
	IssueError    IssueType = "ERROR"
	IssueCritical IssueType = "CRITICAL"
)

// Issue is a single diagnostic entry. Rows and sheets that cannot be modelled
// become Issues instead of aborting the batch; the full list is returned to the
// operator after ingestion.
type Issue struct {
	Type    IssueType `json:"type"`
	File    string    `json:"file,omitempty"`
	Sheet   string    `json:"sheet"`
	Row     int       `json:"row"`
	Message string    `json:"message"`
}

// HasBlocking reports whether the list contains any ERROR or CRITICAL entry.
// A run with only INFO/WARNING issues is still a successful run.
func HasBlocking(issues []Issue) bool {
	for _, is := range issues {
		if is.Type == IssueError || is.Type == IssueCritical {
			return true
		}
	}
	return false
}
