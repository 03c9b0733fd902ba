// Package mail renders and delivers invitation emails.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"strings"
)

//go:embed templates/invitation.html
var templatesFS embed.FS

// Invitation is the data for one invitation email.
type Invitation struct {
	To         string
	Name       string
	TeamID     string
	InviteLink string
}

// Sender delivers a rendered invitation.
type Sender interface {
	Send(ctx context.Context, inv Invitation) error
}

// Renderer turns an Invitation into an HTML body.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the template at path, or the embedded default when path is empty.
func NewRenderer(path string) (*Renderer, error) {
	var (
		src []byte
		err error
	)
	if strings.TrimSpace(path) == "" {
		src, err = templatesFS.ReadFile("templates/invitation.html")
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read mail template: %w", err)
	}
	tmpl, err := template.New("invitation").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse mail template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the template for inv.
func (r *Renderer) Render(inv Invitation) (string, error) {
	var b bytes.Buffer
	if err := r.tmpl.Execute(&b, inv); err != nil {
		return "", err
	}
	return b.String(), nil
}
