package internal

import (
	"strings"

	"github.com/frankli0324/go-shred/internal/http"
)

// curlCommand renders a hop as a curl invocation a user can paste into a shell.
func curlCommand(p *http.Params, target string) string {
	var b strings.Builder
	b.WriteString("curl")
	if p.Method != "GET" {
		b.WriteString(" -X ")
		b.WriteString(p.Method)
	}
	if !p.SSLStrict {
		b.WriteString(" -k")
	}
	p.Header.Each(func(name, value string) {
		b.WriteString(" -H ")
		b.WriteString(shellQuote(name + ": " + value))
	})
	if len(p.Body) > 0 {
		b.WriteString(" --data-binary ")
		b.WriteString(shellQuote(string(p.Body)))
	}
	if !strings.HasPrefix(p.Path, "/") && p.Method != "CONNECT" {
		b.WriteString(" -x ")
		b.WriteString(shellQuote(p.Scheme + "://" + p.Addr()))
	}
	b.WriteByte(' ')
	b.WriteString(shellQuote(target))
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
