/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dom.go
Description: DOM helpers built on goquery. Extracts interactive elements as action
descriptors with stable CSS selectors, reduces a page to its structural skeleton and
spots error banners in rendered HTML.
*/

package web

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
)

// interactiveSelector matches every element the explorer knows how to drive
const interactiveSelector = `a[href], button, input, select, textarea, [role="button"], [role="link"], [onclick], summary`

// errorPatterns flag pages that render a failure
var errorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)internal server error`),
	regexp.MustCompile(`(?i)\b5\d\d\b[^<]{0,40}error`),
	regexp.MustCompile(`(?i)uncaught (type|reference|syntax)error`),
	regexp.MustCompile(`(?i)stack trace`),
	regexp.MustCompile(`(?i)sql syntax`),
	regexp.MustCompile(`(?i)unhandled exception`),
}

// ExtractOptions tunes action extraction
type ExtractOptions struct {
	IncludeHidden bool // Keep elements that are hidden or disabled
}

// ExtractActions parses html and returns one descriptor per interactive element
func ExtractActions(document string, opts ExtractOptions) ([]interfaces.ActionDescriptor, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	var actions []interfaces.ActionDescriptor
	seen := make(map[string]struct{})

	doc.Find(interactiveSelector).Each(func(_ int, sel *goquery.Selection) {
		kind, ok := kindOf(sel)
		if !ok {
			return
		}

		visible := isVisible(sel)
		_, disabled := sel.Attr("disabled")
		if !opts.IncludeHidden && (!visible || disabled) {
			return
		}

		ref, confidence := selectorFor(sel)
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}

		actions = append(actions, interfaces.ActionDescriptor{
			TargetRef:  ref,
			Kind:       kind,
			Confidence: confidence,
			Label:      labelOf(sel),
			Visible:    visible,
			Enabled:    !disabled,
			Attributes: attributesOf(sel),
		})
	})

	return actions, nil
}

// kindOf maps an element to an action kind
func kindOf(sel *goquery.Selection) (interfaces.ActionKind, bool) {
	tag := goquery.NodeName(sel)
	typ := strings.ToLower(sel.AttrOr("type", ""))

	switch tag {
	case "a":
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if strings.HasPrefix(strings.ToLower(href), "javascript:") || href == "#" {
			return interfaces.ActionButton, true
		}
		return interfaces.ActionLink, true
	case "button":
		if typ == "submit" || (typ == "" && sel.Closest("form").Length() > 0) {
			return interfaces.ActionSubmit, true
		}
		return interfaces.ActionButton, true
	case "input":
		switch typ {
		case "hidden":
			return "", false
		case "submit", "image":
			return interfaces.ActionSubmit, true
		case "button", "reset":
			return interfaces.ActionButton, true
		case "checkbox", "radio":
			return interfaces.ActionCheckbox, true
		default:
			return interfaces.ActionInput, true
		}
	case "textarea":
		return interfaces.ActionInput, true
	case "select":
		return interfaces.ActionSelect, true
	}

	if strings.EqualFold(sel.AttrOr("role", ""), "link") {
		return interfaces.ActionLink, true
	}
	return interfaces.ActionButton, true
}

// selectorFor builds a CSS selector for the element. Ids are the most stable,
// then names, then the structural path.
func selectorFor(sel *goquery.Selection) (string, float64) {
	tag := goquery.NodeName(sel)
	if id, ok := sel.Attr("id"); ok && id != "" && !strings.ContainsAny(id, " \"'") {
		return "#" + cssEscape(id), 0.95
	}
	if name, ok := sel.Attr("name"); ok && name != "" && !strings.Contains(name, `"`) {
		return fmt.Sprintf(`%s[name="%s"]`, tag, name), 0.85
	}
	return cssPath(sel), 0.6
}

// cssPath walks up to the nearest ancestor with an id, or to html
func cssPath(sel *goquery.Selection) string {
	var parts []string
	for current := sel; current.Length() > 0; current = current.Parent() {
		tag := goquery.NodeName(current)
		if tag == "" || tag == "#document" {
			break
		}
		if id, ok := current.Attr("id"); ok && id != "" && current != sel {
			parts = append(parts, "#"+cssEscape(id))
			break
		}
		if tag == "html" {
			parts = append(parts, "html")
			break
		}
		index := 1
		current.PrevAll().Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) == tag {
				index++
			}
		})
		parts = append(parts, fmt.Sprintf("%s:nth-of-type(%d)", tag, index))
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func cssEscape(id string) string {
	var b strings.Builder
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, `\3%c `, r)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteString(`\` + string(r))
		}
	}
	return b.String()
}

func isVisible(sel *goquery.Selection) bool {
	for current := sel; current.Length() > 0; current = current.Parent() {
		if _, hidden := current.Attr("hidden"); hidden {
			return false
		}
		if strings.EqualFold(current.AttrOr("aria-hidden", ""), "true") {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(current.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func labelOf(sel *goquery.Selection) string {
	candidates := []string{
		strings.Join(strings.Fields(sel.Text()), " "),
		sel.AttrOr("aria-label", ""),
		sel.AttrOr("title", ""),
		sel.AttrOr("placeholder", ""),
		sel.AttrOr("value", ""),
		sel.AttrOr("alt", ""),
		sel.AttrOr("name", ""),
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			if len(c) > 80 {
				c = c[:80]
			}
			return c
		}
	}
	return ""
}

func attributesOf(sel *goquery.Selection) map[string]string {
	attrs := make(map[string]string)
	for _, name := range []string{"id", "name", "type", "href", "role", "placeholder"} {
		if v, ok := sel.Attr(name); ok && v != "" {
			attrs[name] = v
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// StructuralSkeleton reduces a document to its element tree without text or
// attribute values, so content edits do not change it but layout edits do
func StructuralSkeleton(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}

	var b strings.Builder
	var walk func(sel *goquery.Selection, depth int)
	walk = func(sel *goquery.Selection, depth int) {
		sel.Each(func(_ int, el *goquery.Selection) {
			switch tag := goquery.NodeName(el); tag {
			case "script", "style", "noscript", "template":
				return
			default:
				b.WriteString(strings.Repeat(" ", depth))
				b.WriteString(tag)
				b.WriteByte('\n')
			}
			walk(el.Children(), depth+1)
		})
	}
	walk(doc.Children(), 0)
	return b.String(), nil
}

// VisibleText returns the normalised text content of the body
func VisibleText(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " "), nil
}

// ErrorSignalsFromDOM returns the error patterns found in the rendered text
func ErrorSignalsFromDOM(document string) []string {
	text, err := VisibleText(document)
	if err != nil {
		return nil
	}
	var signals []string
	for _, pattern := range errorPatterns {
		if match := pattern.FindString(text); match != "" {
			signals = append(signals, "dom: "+match)
		}
	}
	return signals
}

// InScope reports whether url falls under one of the scope prefixes. An empty
// scope accepts everything.
func InScope(url string, scope []string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, s := range scope {
		if strings.Contains(url, s) {
			return true
		}
	}
	return false
}

// DefaultPayload picks a plausible value for an input when no payload is configured
func DefaultPayload(action interfaces.ActionDescriptor) string {
	switch strings.ToLower(action.Attributes["type"]) {
	case "email":
		return "explorer@example.com"
	case "number", "range":
		return "42"
	case "tel":
		return "5550100"
	case "url":
		return "https://example.com"
	case "date":
		return "2024-01-01"
	case "password":
		return "Explorer123!"
	default:
		return "akaylee"
	}
}
