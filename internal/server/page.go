package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/pthm/openwire"
	"github.com/pthm/openwire/internal/demo"
)

type mount struct {
	title string
	ref   string
	props map[string]any
}

var pageMounts = []mount{
	{"Counter", "counter", map[string]any{"count": 0}},
	{"Clock", "clock", nil},
	{"Todo", "todo", map[string]any{"items": []any{"Read the docs", "Build a component"}}},
	{"Price", "legacy:" + demo.PriceAlias, map[string]any{"product_id": 1}},
}

// servePage renders the demo page. Every component is mounted against the
// visitor's session, and the session's form key is embedded for the client
// runtime to echo back.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Session(w, r)
	if err != nil {
		s.logger.Error("session unavailable", "error", err)
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		return
	}

	sections := make([]string, 0, len(pageMounts))
	for _, m := range pageMounts {
		html, err := s.runner.Mount(r.Context(), m.ref, m.props, sess)
		if err != nil {
			s.logger.Error("mount failed", "component", m.ref, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		sections = append(sections, fmt.Sprintf("<section><h2>%s</h2>%s</section>", templ.EscapeString(m.title), html))
	}

	if err := openwire.Render(w, r, page(sess.FormKey(), sections)); err != nil {
		s.logger.Warn("write page", "error", err)
	}
}

func page(formKey string, sections []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!doctype html>
<html>
<head><meta charset="utf-8"><title>OpenWire</title></head>
<body>
<input type="hidden" name="form_key" value="%s">
<main>
`, templ.EscapeString(formKey)); err != nil {
			return err
		}
		for _, sec := range sections {
			if _, err := io.WriteString(w, sec+"\n"); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</main>\n</body>\n</html>\n")
		return err
	})
}
