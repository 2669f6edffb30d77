package render

import (
	"html"
	"html/template"

	"github.com/magmedia/brewbuddy/internal/chat"
	"github.com/magmedia/brewbuddy/internal/upstream/openaicompat"
)

// Reply renders the first choice of a completion body. When there is none it
// returns the fallback text itself, unwrapped, alongside the recorded content.
func Reply(body []byte) (template.HTML, string) {
	content, err := openaicompat.FirstContent(body)
	if err != nil {
		return template.HTML(html.EscapeString(chat.FallbackReply)), chat.FallbackReply
	}
	return Markdown(content), content
}
