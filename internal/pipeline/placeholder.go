package pipeline

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// renderPlaceholder synthesizes a minimal SVG artifact carrying the caption.
// The real composited image is produced client-side; storage and
// registration only need deterministic bytes to address.
func renderPlaceholder(caption, prompt string) []byte {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="600" height="400">`)
	b.WriteString(`<rect width="600" height="400" fill="#111827"/>`)
	fmt.Fprintf(&b, `<text x="300" y="200" text-anchor="middle" fill="#f9fafb" font-size="24">%s</text>`, escapeXML(caption))
	fmt.Fprintf(&b, `<text x="300" y="380" text-anchor="middle" fill="#6b7280" font-size="12">%s</text>`, escapeXML(prompt))
	b.WriteString(`</svg>`)
	return []byte(b.String())
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
