// Package multipart decodes a buffered multipart/form-data body into named parts.
//
// The decoder works on raw bytes with an explicit state machine
// (seeking-boundary, reading-headers, reading-body), so binary payloads come
// out byte-exact and the input is scanned forward only once. It has no
// dependency on any HTTP framework: callers pass the boundary and the body.
package multipart

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"
)

const DefaultContentType = "application/octet-stream"

var (
	ErrMalformedMultipart = errors.New("malformed multipart body")
	ErrMissingFile        = errors.New("missing file part")
)

// Part is one decoded section of the body. Data aliases the decoded buffer.
type Part struct {
	Name        string
	FileName    string
	ContentType string
	Data        []byte
}

// IsFile reports whether the part carried a non-empty filename.
func (p *Part) IsFile() bool {
	return p.FileName != ""
}

// Size is the payload length in bytes.
func (p *Part) Size() int64 {
	return int64(len(p.Data))
}

type Form struct {
	Parts []*Part
}

// Value returns the first scalar field called name.
func (f *Form) Value(name string) (string, bool) {
	for _, p := range f.Parts {
		if p.Name == name && !p.IsFile() {
			return string(p.Data), true
		}
	}
	return "", false
}

// File returns the first file part called name.
func (f *Form) File(name string) (*Part, bool) {
	for _, p := range f.Parts {
		if p.Name == name && p.IsFile() {
			return p, true
		}
	}
	return nil, false
}

func (f *Form) RequireFile(name string) (*Part, error) {
	p, ok := f.File(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingFile, name)
	}
	return p, nil
}

// BoundaryFromContentType extracts the boundary parameter of a multipart Content-Type header.
func BoundaryFromContentType(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: content type: %v", ErrMalformedMultipart, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("%w: content type %q is not multipart", ErrMalformedMultipart, mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("%w: no boundary", ErrMalformedMultipart)
	}
	return boundary, nil
}

type state int

const (
	seekingBoundary state = iota
	readingHeaders
	readingBody
	finished
)

type decoder struct {
	buf   []byte
	pos   int
	delim []byte
	state state
	part  *Part
	form  *Form
}

// Decode parses body using boundary. Surrounding whitespace and quotes on the
// boundary are ignored.
func Decode(boundary string, body []byte) (*Form, error) {
	boundary = strings.Trim(strings.TrimSpace(boundary), `"`)
	if boundary == "" {
		return nil, fmt.Errorf("%w: no boundary", ErrMalformedMultipart)
	}

	d := &decoder{
		buf:   body,
		delim: []byte("--" + boundary),
		state: seekingBoundary,
		form:  &Form{},
	}
	for d.state != finished {
		var err error
		switch d.state {
		case seekingBoundary:
			err = d.seekBoundary()
		case readingHeaders:
			err = d.readHeaders()
		case readingBody:
			err = d.readBody()
		}
		if err != nil {
			return nil, err
		}
	}
	return d.form, nil
}

// seekBoundary skips the preamble up to the first delimiter line.
func (d *decoder) seekBoundary() error {
	from := d.pos
	for {
		idx := bytes.Index(d.buf[from:], d.delim)
		if idx < 0 {
			return fmt.Errorf("%w: boundary not found", ErrMalformedMultipart)
		}
		at := from + idx
		if at == 0 || d.buf[at-1] == '\n' {
			if next, closing, ok := d.delimiterTail(at + len(d.delim)); ok {
				return d.afterDelimiter(next, closing)
			}
		}
		from = at + 1
	}
}

func (d *decoder) readHeaders() error {
	part := &Part{}
	var lastKey string
	headers := map[string]string{}

	for {
		nl := bytes.IndexByte(d.buf[d.pos:], '\n')
		if nl < 0 {
			return fmt.Errorf("%w: unterminated part headers", ErrMalformedMultipart)
		}
		line := bytes.TrimSuffix(d.buf[d.pos:d.pos+nl], []byte("\r"))
		d.pos += nl + 1

		if len(line) == 0 {
			break
		}
		if (line[0] == ' ' || line[0] == '\t') && lastKey != "" {
			headers[lastKey] += " " + strings.TrimSpace(string(line))
			continue
		}
		key, value, ok := strings.Cut(string(line), ":")
		if !ok {
			return fmt.Errorf("%w: bad header line %q", ErrMalformedMultipart, line)
		}
		lastKey = strings.ToLower(strings.TrimSpace(key))
		headers[lastKey] = strings.TrimSpace(value)
	}

	disposition := headers["content-disposition"]
	if disposition == "" {
		return fmt.Errorf("%w: part without Content-Disposition", ErrMalformedMultipart)
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return fmt.Errorf("%w: Content-Disposition: %v", ErrMalformedMultipart, err)
	}
	part.Name = params["name"]
	if part.Name == "" {
		return fmt.Errorf("%w: part without name", ErrMalformedMultipart)
	}
	part.FileName = params["filename"]
	part.ContentType = headers["content-type"]
	if part.ContentType == "" {
		part.ContentType = DefaultContentType
	}

	d.part = part
	d.state = readingBody
	return nil
}

// readBody takes everything up to the line break that precedes the next
// delimiter line. That line break belongs to the delimiter, not the payload.
func (d *decoder) readBody() error {
	from := d.pos
	for {
		idx := bytes.Index(d.buf[from:], d.delim)
		if idx < 0 {
			return fmt.Errorf("%w: unterminated part %q", ErrMalformedMultipart, d.part.Name)
		}
		at := from + idx
		if at > 0 && d.buf[at-1] == '\n' {
			if next, closing, ok := d.delimiterTail(at + len(d.delim)); ok {
				end := at - 1
				if end > d.pos && d.buf[end-1] == '\r' {
					end--
				}
				if end < d.pos {
					end = d.pos
				}
				d.part.Data = d.buf[d.pos:end]
				d.form.Parts = append(d.form.Parts, d.part)
				d.part = nil
				return d.afterDelimiter(next, closing)
			}
		}
		from = at + 1
	}
}

func (d *decoder) afterDelimiter(next int, closing bool) error {
	d.pos = next
	if closing {
		d.state = finished
	} else {
		d.state = readingHeaders
	}
	return nil
}

// delimiterTail checks what follows a delimiter at i: either "--" (close
// delimiter) or optional transport padding and a line break.
func (d *decoder) delimiterTail(i int) (next int, closing bool, ok bool) {
	if bytes.HasPrefix(d.buf[i:], []byte("--")) {
		return len(d.buf), true, true
	}
	for i < len(d.buf) && (d.buf[i] == ' ' || d.buf[i] == '\t') {
		i++
	}
	switch {
	case bytes.HasPrefix(d.buf[i:], []byte("\r\n")):
		return i + 2, false, true
	case bytes.HasPrefix(d.buf[i:], []byte("\n")):
		return i + 1, false, true
	}
	return 0, false, false
}
