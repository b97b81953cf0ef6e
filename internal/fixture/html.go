// File: internal/fixture/html.go
package fixture

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

// ParseHTML turns a static HTML document into an Observation. The mapping is
// heuristic but deterministic: interactive elements become candidates in
// document order, visible text becomes content blocks, and the fingerprint
// hashes the page structure so revisits are recognizable. Goal signals are
// never inferred here; scripts set those explicitly.
func ParseHTML(pageURL string, r io.Reader) (schemas.Observation, error) {
	root, err := html.Parse(r)
	if err != nil {
		return schemas.Observation{}, fmt.Errorf("fixture: parsing html: %w", err)
	}

	p := &htmlPage{url: pageURL}
	p.walk(root, walkContext{})
	return p.observation(), nil
}

// ParseHTMLFile reads and parses an HTML fixture file.
func ParseHTMLFile(pageURL, path string) (schemas.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return schemas.Observation{}, fmt.Errorf("fixture: opening html %s: %w", path, err)
	}
	defer f.Close()
	return ParseHTML(pageURL, f)
}

// walkContext carries the ancestry facts that shape a candidate.
type walkContext struct {
	inNav     bool
	inHeader  bool
	inFooter  bool
	formDepth int
}

type htmlPage struct {
	url        string
	title      string
	candidates []schemas.CandidateElement
	content    []schemas.ContentBlock
	seq        int
}

func (p *htmlPage) walk(n *html.Node, ctx walkContext) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "title":
			p.title = collapse(textOf(n))
			return
		case "nav":
			ctx.inNav = true
			p.addContent(schemas.ContentNav, textOf(n))
		case "header":
			ctx.inHeader = true
		case "footer":
			ctx.inFooter = true
		case "form":
			ctx.formDepth++
		case "h1", "h2", "h3", "h4", "h5", "h6":
			p.addContent(schemas.ContentHeading, textOf(n))
		case "p":
			p.addContent(schemas.ContentParagraph, textOf(n))
		case "ul", "ol":
			p.addListContent(n)
		case "a", "button", "input", "select", "textarea":
			p.addCandidate(n, ctx)
			if n.Data != "a" && n.Data != "button" {
				return
			}
		default:
			switch {
			case isAlert(n):
				p.addContent(schemas.ContentAlert, textOf(n))
			case hasInteractiveRole(n):
				p.addCandidate(n, ctx)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c, ctx)
	}
}

func (p *htmlPage) observation() schemas.Observation {
	p.spreadProminence()
	obs := schemas.Observation{
		URL:        p.url,
		Title:      p.title,
		Candidates: p.candidates,
		Content:    p.content,
	}
	obs.Fingerprint = obs.StructuralFingerprint()
	return obs
}

func (p *htmlPage) addContent(kind schemas.ContentKind, text string) {
	text = collapse(text)
	if text == "" {
		return
	}
	p.content = append(p.content, schemas.ContentBlock{Kind: kind, Text: text})
}

func (p *htmlPage) addListContent(n *html.Node) {
	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			if t := collapse(textOf(c)); t != "" {
				items = append(items, t)
			}
		}
	}
	if len(items) > 0 {
		p.content = append(p.content, schemas.ContentBlock{
			Kind: schemas.ContentList,
			Text: strings.Join(items, "; "),
		})
	}
}

func (p *htmlPage) addCandidate(n *html.Node, ctx walkContext) {
	role, ok := roleOf(n)
	if !ok {
		return
	}

	p.seq++
	ref := attr(n, "id")
	if ref == "" {
		ref = fmt.Sprintf("%s-%d", n.Data, p.seq)
	}

	cand := schemas.CandidateElement{
		Ref:        ref,
		Label:      labelOf(n),
		Role:       role,
		Href:       attr(n, "href"),
		FlowDepth:  ctx.formDepth,
		Prominence: baseProminence(n, ctx),
	}
	p.candidates = append(p.candidates, cand)
}

// spreadProminence folds document order in: everything else equal, earlier
// elements read as more prominent.
func (p *htmlPage) spreadProminence() {
	total := len(p.candidates)
	if total <= 1 {
		return
	}
	for i := range p.candidates {
		orderFrac := float64(i) / float64(total-1)
		v := p.candidates[i].Prominence - 0.25*orderFrac
		if v < 0.05 {
			v = 0.05
		}
		if v > 1 {
			v = 1
		}
		p.candidates[i].Prominence = v
	}
}

// hasInteractiveRole spots ARIA widgets built on non-interactive tags.
func hasInteractiveRole(n *html.Node) bool {
	switch strings.ToLower(attr(n, "role")) {
	case "button", "link", "tab", "menuitem", "menu":
		return true
	}
	return false
}

func roleOf(n *html.Node) (schemas.ElementRole, bool) {
	switch strings.ToLower(attr(n, "role")) {
	case "tab":
		return schemas.RoleTab, true
	case "menuitem", "menu":
		return schemas.RoleMenu, true
	case "button":
		return schemas.RoleButton, true
	case "link":
		return schemas.RoleLink, true
	}

	switch n.Data {
	case "a":
		if attr(n, "href") == "" {
			return "", false
		}
		return schemas.RoleLink, true
	case "button":
		return schemas.RoleButton, true
	case "select":
		return schemas.RoleSelect, true
	case "textarea":
		return schemas.RoleInput, true
	case "input":
		switch strings.ToLower(attr(n, "type")) {
		case "hidden":
			return "", false
		case "submit", "button", "image":
			return schemas.RoleButton, true
		case "checkbox", "radio":
			return schemas.RoleCheckbox, true
		default:
			return schemas.RoleInput, true
		}
	}
	return schemas.RoleOther, true
}

// labelOf picks the text a user would actually read on the element.
func labelOf(n *html.Node) string {
	if v := attr(n, "aria-label"); v != "" {
		return collapse(v)
	}
	if t := collapse(textOf(n)); t != "" {
		return t
	}
	for _, name := range []string{"placeholder", "value", "title", "alt", "name"} {
		if v := attr(n, name); v != "" {
			return collapse(v)
		}
	}
	if href := attr(n, "href"); href != "" {
		return href
	}
	return n.Data
}

func baseProminence(n *html.Node, ctx walkContext) float64 {
	v := 0.45
	switch n.Data {
	case "button":
		v = 0.65
	case "input", "select", "textarea":
		v = 0.55
	}
	if strings.ToLower(attr(n, "type")) == "submit" {
		v = 0.7
	}
	if ctx.inNav || ctx.inHeader {
		v += 0.15
	}
	if ctx.inFooter {
		v -= 0.25
	}
	if v < 0.05 {
		v = 0.05
	}
	if v > 1 {
		v = 1
	}
	return v
}

func isAlert(n *html.Node) bool {
	if strings.ToLower(attr(n, "role")) == "alert" {
		return true
	}
	class := strings.ToLower(attr(n, "class"))
	return strings.Contains(class, "alert") || strings.Contains(class, "error")
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(m *html.Node) {
		switch {
		case m.Type == html.TextNode:
			b.WriteString(m.Data)
			b.WriteByte(' ')
		case m.Type == html.ElementNode && (m.Data == "script" || m.Data == "style"):
			return
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
