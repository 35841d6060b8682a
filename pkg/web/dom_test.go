/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dom_test.go
Description: Tests for DOM extraction helpers. None of these need a browser.
*/

package web_test

import (
	"testing"

	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/kleascm/akaylee-explorer/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><body>
<nav><a id="home" href="/">Home</a><a href="/about">About</a><a href="javascript:void(0)">Menu</a></nav>
<form>
  <input name="q" type="search" placeholder="Search">
  <input type="hidden" name="csrf" value="x">
  <button>Go</button>
</form>
<button id="menu" type="button">Open</button>
<div style="display: none"><button id="secret">Hidden</button></div>
<select id="lang"><option>en</option><option>de</option></select>
<input type="checkbox" id="agree">
<div role="link" id="card">Card</div>
<button id="off" disabled>Off</button>
<script>console.log("ignored")</script>
</body></html>`

func byRef(actions []interfaces.ActionDescriptor) map[string]interfaces.ActionDescriptor {
	out := make(map[string]interfaces.ActionDescriptor, len(actions))
	for _, a := range actions {
		out[a.TargetRef] = a
	}
	return out
}

func TestExtractActions(t *testing.T) {
	actions, err := web.ExtractActions(samplePage, web.ExtractOptions{})
	require.NoError(t, err)

	refs := byRef(actions)
	expected := map[string]interfaces.ActionKind{
		"#home": interfaces.ActionLink,
		"html > body:nth-of-type(1) > nav:nth-of-type(1) > a:nth-of-type(2)":    interfaces.ActionLink,
		"html > body:nth-of-type(1) > nav:nth-of-type(1) > a:nth-of-type(3)":    interfaces.ActionButton,
		`input[name="q"]`: interfaces.ActionInput,
		"html > body:nth-of-type(1) > form:nth-of-type(1) > button:nth-of-type(1)": interfaces.ActionSubmit,
		"#menu":  interfaces.ActionButton,
		"#lang":  interfaces.ActionSelect,
		"#agree": interfaces.ActionCheckbox,
		"#card":  interfaces.ActionLink,
	}
	assert.Len(t, actions, len(expected))
	for ref, kind := range expected {
		action, ok := refs[ref]
		if assert.True(t, ok, "missing %s", ref) {
			assert.Equal(t, kind, action.Kind, ref)
			assert.True(t, action.Visible)
			assert.True(t, action.Enabled)
		}
	}

	assert.Equal(t, 0.95, refs["#home"].Confidence)
	assert.Equal(t, "Home", refs["#home"].Label)
	assert.Equal(t, 0.85, refs[`input[name="q"]`].Confidence)
	assert.Equal(t, "Search", refs[`input[name="q"]`].Label)
	assert.Equal(t, "search", refs[`input[name="q"]`].Attributes["type"])
	assert.Equal(t, 0.6, refs["html > body:nth-of-type(1) > nav:nth-of-type(1) > a:nth-of-type(2)"].Confidence)
}

func TestExtractActionsIncludeHidden(t *testing.T) {
	actions, err := web.ExtractActions(samplePage, web.ExtractOptions{IncludeHidden: true})
	require.NoError(t, err)

	refs := byRef(actions)
	require.Contains(t, refs, "#secret")
	require.Contains(t, refs, "#off")
	assert.False(t, refs["#secret"].Visible)
	assert.False(t, refs["#off"].Enabled)
	assert.NotContains(t, refs, `input[name="csrf"]`)
}

func TestExtractActionsDeduplicatesSelectors(t *testing.T) {
	page := `<html><body><a id="x" href="/a">A</a><a id="x" href="/b">B</a></body></html>`
	actions, err := web.ExtractActions(page, web.ExtractOptions{})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "A", actions[0].Label)
}

func TestExtractActionsEscapesLeadingDigit(t *testing.T) {
	actions, err := web.ExtractActions(`<html><body><button id="1st">One</button></body></html>`, web.ExtractOptions{})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, `#\31 st`, actions[0].TargetRef)
}

func TestStructuralSkeleton(t *testing.T) {
	a, err := web.StructuralSkeleton(`<html><body><h1>Hello</h1><p>one</p><script>x()</script></body></html>`)
	require.NoError(t, err)
	b, err := web.StructuralSkeleton(`<html><body><h1>Goodbye</h1><p>two</p></body></html>`)
	require.NoError(t, err)
	c, err := web.StructuralSkeleton(`<html><body><h1>Hello</h1><p>one</p><ul><li>x</li></ul></body></html>`)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "script")
	assert.Contains(t, c, "  ul\n   li\n")
}

func TestVisibleText(t *testing.T) {
	text, err := web.VisibleText(`<html><head><title>T</title></head><body><h1> Hello </h1>
<style>.a{}</style><p>big   world</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Hello big world", text)
}

func TestErrorSignalsFromDOM(t *testing.T) {
	signals := web.ErrorSignalsFromDOM(`<html><body><h1>500 Internal Server Error</h1></body></html>`)
	assert.Contains(t, signals, "dom: Internal Server Error")

	assert.Empty(t, web.ErrorSignalsFromDOM(`<html><body><h1>All good</h1></body></html>`))
}

func TestInScope(t *testing.T) {
	assert.True(t, web.InScope("https://other.example/x", nil))
	assert.True(t, web.InScope("https://app.example/settings", []string{"app.example"}))
	assert.False(t, web.InScope("https://evil.example/", []string{"app.example"}))
}

func TestDefaultPayload(t *testing.T) {
	input := func(typ string) interfaces.ActionDescriptor {
		return interfaces.ActionDescriptor{Kind: interfaces.ActionInput, Attributes: map[string]string{"type": typ}}
	}
	assert.Equal(t, "explorer@example.com", web.DefaultPayload(input("email")))
	assert.Equal(t, "42", web.DefaultPayload(input("number")))
	assert.Equal(t, "akaylee", web.DefaultPayload(input("text")))
	assert.Equal(t, "akaylee", web.DefaultPayload(interfaces.ActionDescriptor{Kind: interfaces.ActionInput}))
}
