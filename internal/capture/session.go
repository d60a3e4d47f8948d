package capture

import (
	"image"
)

// Session owns one Source and one PostProcessor for the lifetime of a run
type Session struct {
	source    *Source
	processor *PostProcessor
}

// NewSession creates a session reading from source
func NewSession(source *Source, processor *PostProcessor) *Session {
	return &Session{
		source:    source,
		processor: processor,
	}
}

// GetImage returns the next post-processed frame. It never fails: an
// unavailable origin yields the processed placeholder. Only a still source
// with an undecodable file returns an empty frame.
func (s *Session) GetImage() *image.RGBA {
	return s.processor.Apply(s.source.next())
}

// Processor returns the session's post-processor
func (s *Session) Processor() *PostProcessor {
	return s.processor
}

// Source returns the session's media source
func (s *Session) Source() *Source {
	return s.source
}

// Close releases the source
func (s *Session) Close() error {
	return s.source.Close()
}
