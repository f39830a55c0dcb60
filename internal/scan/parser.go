package scan

// Parser turns a raw device payload into a structured document. A parse
// error means the payload is unusable; the pipeline reports INVALID_FORMAT
// and writes nothing.
type Parser interface {
	Parse(raw string) (*Document, error)
}
