// Package views は埋め込みの HTML テンプレートを提供します。
package views

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Load は全テンプレートを読み込みます。テンプレート名はファイル名です。
func Load() (*template.Template, error) {
	return template.New("").ParseFS(files, "templates/*.html")
}
