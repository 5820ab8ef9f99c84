package domain

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/tidwall/gjson"
)

// Mailbox length limits from RFC 5321.
const (
	maxAddressLength   = 254
	maxLocalPartLength = 64
)

// Recipient is one target of a campaign, with optional template bindings.
type Recipient struct {
	Email string
	Name  string

	// Vars holds per-recipient template bindings.
	Vars map[string]interface{}

	// Attachments are files sent to this recipient only, on top of any
	// job-level attachments. Parsed as filenames; callers resolve the
	// file contents before the run.
	Attachments []Attachment
}

// Validate checks that the recipient address is usable.
func (r Recipient) Validate() error {
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return fmt.Errorf("recipient address is empty")
	}
	if len(email) > maxAddressLength {
		return fmt.Errorf("recipient address %q exceeds %d characters", email, maxAddressLength)
	}
	if at := strings.Index(email, "@"); at > maxLocalPartLength {
		return fmt.Errorf("recipient address %q local part exceeds %d characters", email, maxLocalPartLength)
	}
	if !govalidator.IsEmail(email) {
		return fmt.Errorf("recipient address %q is not a valid email", email)
	}
	return nil
}

// ParseRecipients reads a recipient list: one recipient per line, either a
// bare address or a JSON object {"email": ..., "name": ..., "vars": {...}}.
// Blank lines and #-comments are skipped. Every parsed recipient is
// validated; the first invalid line fails the whole parse with its line
// number.
func ParseRecipients(r io.Reader) ([]Recipient, error) {
	var recipients []Recipient

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		recipient, err := parseRecipientLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := recipient.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		recipients = append(recipients, recipient)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading recipients: %w", err)
	}
	return recipients, nil
}

func parseRecipientLine(line string) (Recipient, error) {
	if !strings.HasPrefix(line, "{") {
		return Recipient{Email: line}, nil
	}

	if !gjson.Valid(line) {
		return Recipient{}, fmt.Errorf("malformed JSON recipient")
	}

	email := gjson.Get(line, "email").String()
	if email == "" {
		return Recipient{}, fmt.Errorf("JSON recipient is missing \"email\"")
	}

	recipient := Recipient{
		Email: email,
		Name:  gjson.Get(line, "name").String(),
	}

	if vars := gjson.Get(line, "vars"); vars.IsObject() {
		recipient.Vars = make(map[string]interface{}, len(vars.Map()))
		vars.ForEach(func(key, value gjson.Result) bool {
			recipient.Vars[key.String()] = value.Value()
			return true
		})
	}

	// "attachments" is a filename or a list of filenames
	switch attachments := gjson.Get(line, "attachments"); {
	case attachments.IsArray():
		for _, name := range attachments.Array() {
			filename := strings.TrimSpace(name.String())
			if filename == "" {
				return Recipient{}, fmt.Errorf("JSON recipient has an empty attachment name")
			}
			recipient.Attachments = append(recipient.Attachments, Attachment{Filename: filename})
		}
	case attachments.Type == gjson.String:
		filename := strings.TrimSpace(attachments.String())
		if filename == "" {
			return Recipient{}, fmt.Errorf("JSON recipient has an empty attachment name")
		}
		recipient.Attachments = append(recipient.Attachments, Attachment{Filename: filename})
	}

	return recipient, nil
}
