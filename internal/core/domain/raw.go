package domain

// RawDocument is an upload before text extraction. Filename and MIMEType
// are hints for picking an extractor; either may be empty.
type RawDocument struct {
	Filename string
	MIMEType string
	Content  []byte
}
