// Package export renders conversation logs as standalone HTML pages.
//
// Message content is treated as Markdown, rendered with goldmark and
// sanitized with bluemonday before it is embedded in the page, so logs
// containing arbitrary model output are safe to open in a browser.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/logpack/logpack/tokens"
	"github.com/logpack/logpack/types"
)

// Options controls HTML export.
type Options struct {
	// Title is the page title. Defaults to the log ID.
	Title string
}

// HTMLExporter converts logs to HTML documents.
type HTMLExporter struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
	tmpl     *template.Template
}

// NewHTMLExporter creates an exporter. The zero configuration renders
// GitHub-flavored Markdown and strips everything bluemonday's UGC
// policy does not allow.
func NewHTMLExporter() *HTMLExporter {
	return &HTMLExporter{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		policy: bluemonday.UGCPolicy(),
		tmpl: template.Must(template.New("log").Funcs(template.FuncMap{
			"formatTokens": formatTokens,
		}).Parse(pageTemplate)),
	}
}

// messageView is the per-message template payload.
type messageView struct {
	Role  types.Role
	Seq   int
	Body  template.HTML
	Class string
}

// pageView is the top-level template payload.
type pageView struct {
	Title    string
	LogID    string
	Tokens   int
	Messages []messageView
}

// Export writes the log as a complete HTML document.
func (e *HTMLExporter) Export(w io.Writer, log *types.Log, opts *Options) error {
	if log == nil {
		return fmt.Errorf("export: log is nil")
	}

	title := log.ID
	if opts != nil && opts.Title != "" {
		title = opts.Title
	}

	view := pageView{
		Title:  title,
		LogID:  log.ID,
		Tokens: tokens.Sum(log.Messages),
	}

	for _, msg := range log.Messages {
		body, err := e.renderBody(msg.Content)
		if err != nil {
			return fmt.Errorf("export: render message %d: %w", msg.Seq, err)
		}
		view.Messages = append(view.Messages, messageView{
			Role:  msg.Role,
			Seq:   msg.Seq,
			Body:  body,
			Class: roleClass(msg.Role),
		})
	}

	return e.tmpl.Execute(w, view)
}

// renderBody converts Markdown content to sanitized HTML.
func (e *HTMLExporter) renderBody(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.markdown.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return template.HTML(e.policy.SanitizeBytes(buf.Bytes())), nil
}

func roleClass(role types.Role) string {
	switch role {
	case types.RoleUser:
		return "user"
	case types.RoleAssistant:
		return "assistant"
	case types.RoleSystem:
		return "system"
	case types.RoleToolResult:
		return "tool-result"
	default:
		return "other"
	}
}

func formatTokens(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; color: #1f2937; }
header { border-bottom: 1px solid #e5e7eb; margin-bottom: 1.5rem; padding-bottom: 0.75rem; }
header .meta { color: #6b7280; font-size: 0.875rem; }
.message { margin: 1rem 0; padding: 0.75rem 1rem; border-radius: 0.5rem; }
.message .role { font-size: 0.75rem; font-weight: 600; text-transform: uppercase; letter-spacing: 0.05em; margin-bottom: 0.25rem; }
.message.user { background: #eff6ff; }
.message.assistant { background: #f9fafb; }
.message.system { background: #fefce8; }
.message.tool-result { background: #f0fdf4; font-family: ui-monospace, monospace; font-size: 0.875rem; }
.message.other { background: #f3f4f6; }
pre { background: #111827; color: #f9fafb; padding: 0.75rem; border-radius: 0.375rem; overflow-x: auto; }
code { font-size: 0.875em; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p class="meta">{{len .Messages}} messages &middot; ~{{formatTokens .Tokens}} tokens</p>
</header>
{{range .Messages}}<section class="message {{.Class}}">
<div class="role">{{.Role}}</div>
<div class="body">{{.Body}}</div>
</section>
{{end}}</body>
</html>
`
