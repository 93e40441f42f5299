package domain

// Source identifies which ingestion flow first wrote a coin record.
type Source string

const (
	SourceSearch Source = "search-origin"
	SourceEvent  Source = "event-origin"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceSearch || s == SourceEvent
}
