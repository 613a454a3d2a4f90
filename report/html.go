package report

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/wudi/deckcheck/analyze"
)

const htmlShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Inconsistency Report</title>
<style>
body { font-family: sans-serif; max-width: 60em; margin: 2em auto; padding: 0 1em; }
table { border-collapse: collapse; width: 100%%; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.6em; text-align: left; }
th { background: #f2f2f2; }
</style>
</head>
<body>
%s</body>
</html>
`

// WriteHTML renders the Markdown summary of findings into a standalone
// HTML page at path.
func WriteHTML(path string, findings []analyze.Finding) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(findings)), &body); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return atomicWrite(path, []byte(fmt.Sprintf(htmlShell, body.String())))
}
