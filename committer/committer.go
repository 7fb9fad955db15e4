package committer

// Committer decides when an auto-committing reader should persist its progress.
type Committer interface {
	RecordProcessed(count int)
	Due() bool
	Committed()
}
