package domain

// ExtractionResult is the validated structured output of the extractor for one
// RawMessage. It is produced fresh per call and never persisted as-is. The
// extractor is not guaranteed to be internally consistent: it may claim valid
// news with an empty title or content, so consumers must apply defaults.
type ExtractionResult struct {
	IsValidNews bool
	Title       string
	Content     string
	Country     string
	City        string
	Categories  []string
	PersonNames []string
}
