package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pokedex/internal/catalog"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// pageView はテンプレートに渡す表示データ。
type pageView struct {
	Title     string
	CSRFToken string
	Error     string
	Email     string
	Items     []catalog.Item
}

// renderPage はテンプレートをバッファに描画してから書き込む。
// 描画に失敗した場合は途中までのHTMLを返さず500にする。
func renderPage(w http.ResponseWriter, status int, name string, view pageView) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderErrorPage は汎用のエラーページを描画する。
func renderErrorPage(w http.ResponseWriter, status int, message string) {
	renderPage(w, status, "error.html", pageView{
		Title: http.StatusText(status),
		Error: message,
	})
}
