package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// Notice is an inline message shown above a page's controls
type Notice struct {
	Kind string
	Text string
}

func Success(text string) Notice { return Notice{Kind: NoticeSuccess, Text: "✅ " + text} }

func Error(text string) Notice { return Notice{Kind: NoticeError, Text: "❌ " + text} }

func Info(text string) Notice { return Notice{Kind: NoticeInfo, Text: "ℹ️ " + text} }

// Templates parses the embedded page templates for gin's HTML renderer
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(files, "templates/*.html"))
}
