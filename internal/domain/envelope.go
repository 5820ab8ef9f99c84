package domain

import (
	"net/mail"
	"strings"
)

// Content types for envelope body parts.
const (
	ContentTypeText = "text/plain"
	ContentTypeHTML = "text/html"
)

// Address is a mail address with an optional display name.
type Address struct {
	Name  string
	Email string
}

// String renders the address in RFC 5322 form, quoting the display name
// when necessary.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// Header is a single message header with its name stored verbatim.
type Header struct {
	Name  string
	Value string
}

// BodyPart is one MIME part of the message body.
type BodyPart struct {
	ContentType string
	Content     string
}

// Attachment is a file carried with the message. ContentType is guessed
// from the filename when empty.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Envelope is a fully assembled message ready for transmission: addressing,
// deliverability headers in insertion order, and ordered body parts.
// Treat it as immutable once handed to the transport layer.
type Envelope struct {
	From    Address
	To      string
	Subject string

	// Headers preserves insertion order. Names are matched
	// case-insensitively but stored verbatim.
	Headers []Header

	// BodyParts holds the alternative parts in preference order: the
	// plain part first, HTML after it.
	BodyParts []BodyPart

	Attachments []Attachment
}

// SetHeader sets a header value. An existing header with the same name
// (case-insensitive) is overwritten in place, keeping its position and
// original spelling; otherwise the header is appended.
func (e *Envelope) SetHeader(name, value string) {
	for i := range e.Headers {
		if strings.EqualFold(e.Headers[i].Name, name) {
			e.Headers[i].Value = value
			return
		}
	}
	e.Headers = append(e.Headers, Header{Name: name, Value: value})
}

// GetHeader returns the value of the named header, matched
// case-insensitively.
func (e *Envelope) GetHeader(name string) (string, bool) {
	for i := range e.Headers {
		if strings.EqualFold(e.Headers[i].Name, name) {
			return e.Headers[i].Value, true
		}
	}
	return "", false
}

// PlainBody returns the content of the first text/plain part.
func (e *Envelope) PlainBody() string {
	for _, part := range e.BodyParts {
		if part.ContentType == ContentTypeText {
			return part.Content
		}
	}
	return ""
}

// HTMLBody returns the content of the text/html part, if present.
func (e *Envelope) HTMLBody() (string, bool) {
	for _, part := range e.BodyParts {
		if part.ContentType == ContentTypeHTML {
			return part.Content, true
		}
	}
	return "", false
}
