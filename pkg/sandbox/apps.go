/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: apps.go
Description: Ready-made sandbox apps used by the demo command and the tests.
*/

package sandbox

import (
	"fmt"

	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
)

// NewDemoApp returns a three page site: Home links to Page1 and Page2, both link back
func NewDemoApp() *App {
	return NewApp("home").
		AddPage(Page{
			Name:    "home",
			Content: "Welcome",
			Actions: []Action{
				Link("#page1", "page1"),
				Link("#page2", "page2"),
				Button("#refresh", "Refresh", ""),
				Input("#search", "Search"),
			},
		}).
		AddPage(Page{
			Name:    "page1",
			Content: "About us",
			Actions: []Action{Link("#home", "home")},
		}).
		AddPage(Page{
			Name:    "page2",
			Content: "Contact form",
			Actions: []Action{
				Link("#home", "home"),
				Input("#name", "Name"),
				Input("#email", "Email"),
				Submit("#send", ""),
			},
		})
}

// NewChainApp returns k pages in a line, each linking only to the next
func NewChainApp(k int) *App {
	app := NewApp("s0")
	for i := 0; i < k; i++ {
		page := Page{Name: fmt.Sprintf("s%d", i), Content: fmt.Sprintf("Step %d", i)}
		if i+1 < k {
			page.Actions = []Action{Link("#next", fmt.Sprintf("s%d", i+1))}
		}
		app.AddPage(page)
	}
	return app
}

// NewCycleApp returns two pages that link to each other
func NewCycleApp() *App {
	return NewApp("a").
		AddPage(Page{Name: "a", Actions: []Action{Link("#to-b", "b")}}).
		AddPage(Page{Name: "b", Actions: []Action{Link("#to-a", "a")}})
}

// NewTreeApp returns a complete tree with the given fan-out and depth. Every page
// also links back to the root.
func NewTreeApp(fanout, depth int) *App {
	app := NewApp("n")
	var build func(name string, level int)
	build = func(name string, level int) {
		page := Page{Name: name, Content: "Node " + name}
		if name != "n" {
			page.Actions = append(page.Actions, Button("#root", "Root", "n"))
		}
		if level < depth {
			for i := 0; i < fanout; i++ {
				child := fmt.Sprintf("%s.%d", name, i)
				page.Actions = append(page.Actions, Link(fmt.Sprintf("#c%d", i), child))
				build(child, level+1)
			}
		}
		app.AddPage(page)
	}
	build("n", 0)
	return app
}

// NewLoginApp returns a site whose dashboard is only reachable with a session in
// persisted context
func NewLoginApp() *App {
	return NewApp("login").
		AddPage(Page{
			Name: "login",
			Actions: []Action{
				Input("#user", "Username"),
				{Ref: "#signin", Kind: interfaces.ActionSubmit, Label: "Sign in", To: "dashboard", Sets: map[string]string{"session": "$payload"}},
			},
		}).
		AddPage(Page{
			Name: "dashboard",
			Actions: []Action{
				{Ref: "#down", Kind: interfaces.ActionScroll, Label: "More", Scroll: 400},
				{Ref: "#crash", Kind: interfaces.ActionButton, Label: "Report", To: "error"},
				{Ref: "#logout", Kind: interfaces.ActionLink, Label: "Log out", To: "login", Sets: map[string]string{"session": ""}},
			},
		}).
		AddPage(Page{
			Name:         "error",
			Content:      "Something went wrong",
			ErrorSignals: []string{"500 Internal Server Error"},
			Actions:      []Action{Link("#back", "dashboard")},
		})
}
