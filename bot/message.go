package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUploadUnsupported is returned by Responder.UploadFile on transports that cannot send files.
var ErrUploadUnsupported = errors.New("file uploads not supported on this transport")

// Color is a 24-bit RGB accent color for rich messages.
type Color int

const (
	ColorNone    Color = 0
	ColorGreen   Color = 0x2ECC71
	ColorBlue    Color = 0x3498DB
	ColorOrange  Color = 0xE67E22
	ColorRed     Color = 0xE74C3C
	ColorBlurple Color = 0x5865F2
)

// Hex returns the color as "#rrggbb", or "" for ColorNone.
func (c Color) Hex() string {
	if c == ColorNone {
		return ""
	}
	return fmt.Sprintf("#%06x", int(c)&0xFFFFFF)
}

// Field is a named block inside a rich message. Inline fields may be laid out side by side.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is a transport-neutral reply. Text-only messages leave everything
// but Text empty. Values may use **bold** markup; transports translate it.
type Message struct {
	Text        string
	Title       string
	Description string
	Color       Color
	Fields      []Field
	Footer      string
	Timestamp   time.Time
	// Ephemeral asks the transport to show the reply only to the requester, where supported.
	Ephemeral bool
}

// Text builds a plain text message.
func Text(s string) Message { return Message{Text: s} }

// Failure builds a text message flagged with the error color.
func Failure(s string) Message { return Message{Text: s, Color: ColorRed} }

// Rich reports whether the message carries anything besides Text.
func (m Message) Rich() bool {
	return m.Title != "" || m.Description != "" || len(m.Fields) > 0 || m.Footer != ""
}

// Lines flattens the message for transports without rich formatting. Bold
// markup is stripped and multi-line field values are joined on one line.
func (m Message) Lines() []string {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
		if s != "" {
			out = append(out, s)
		}
	}
	add(m.Text)
	add(m.Title)
	for _, l := range strings.Split(m.Description, "\n") {
		add(l)
	}
	for _, f := range m.Fields {
		add(f.Name + ": " + joinValue(f.Value))
	}
	add(m.Footer)
	return out
}

// Plain is Lines joined with newlines.
func (m Message) Plain() string { return strings.Join(m.Lines(), "\n") }

func joinValue(v string) string {
	parts := strings.Split(v, "\n")
	kept := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "•"))
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// Responder delivers replies for one command invocation.
type Responder interface {
	Reply(ctx context.Context, msg Message) error
	// UploadFile sends the file at path with msg attached. Transports without
	// file support return ErrUploadUnsupported.
	UploadFile(ctx context.Context, path, filename string, msg Message) error
}

// UploadChecker is implemented by responders that know in advance whether
// UploadFile can succeed. Responders without it are assumed to upload.
type UploadChecker interface {
	CanUpload() bool
}

func canUpload(r Responder) bool {
	if u, ok := r.(UploadChecker); ok {
		return u.CanUpload()
	}
	return true
}
