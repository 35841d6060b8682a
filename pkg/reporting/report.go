/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: HTML and Graphviz reports for exploration sessions. Renders the discovered
state graph with statistics cards, a state breakdown chart and state and transition
tables, and exports the graph in DOT form.
*/

package reporting

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"github.com/kleascm/akaylee-explorer/pkg/core"
	"github.com/kleascm/akaylee-explorer/pkg/graph"
	"github.com/sirupsen/logrus"
)

const (
	reportFile = "report.html"
	dotFile    = "graph.dot"
)

// ReportGenerator renders session reports into a directory
type ReportGenerator struct {
	outputDir string
	logger    *logrus.Logger
	templates *template.Template
}

// ReportData is everything the HTML template needs
type ReportData struct {
	Title       string
	GeneratedAt time.Time
	SessionID   string
	Status      core.SessionStatus
	Error       string
	Statistics  graph.GraphStatistics
	Coverage    float64 // Percent
	Metrics     core.MetricsSnapshot
	States      []StateRow
	Transitions []TransitionRow
	StateChart  template.JS
}

// StateRow is one line of the state table
type StateRow struct {
	ID        string
	ShortID   string
	Location  string
	Visits    int
	Explored  int
	Available int
	Initial   bool
	Terminal  bool
	Error     bool
}

// TransitionRow is one line of the transition table
type TransitionRow struct {
	From       string
	To         string
	Action     string
	Count      int
	Reversible bool
}

// NewReportGenerator creates a report generator writing to outputDir
func NewReportGenerator(outputDir string, logger *logrus.Logger) *ReportGenerator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReportGenerator{
		outputDir: outputDir,
		logger:    logger,
		templates: template.Must(template.New("report").Parse(reportTemplate)),
	}
}

// Generate writes report.html and graph.dot and returns the report path
func (rg *ReportGenerator) Generate(result *core.DiscoveryResult, title string) (string, error) {
	if err := os.MkdirAll(rg.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := BuildReportData(result, title)
	if err != nil {
		return "", err
	}

	path := filepath.Join(rg.outputDir, reportFile)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := rg.templates.Execute(file, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	dot := DOT(result.States, result.Transitions, result.InitialStateID)
	if err := os.WriteFile(filepath.Join(rg.outputDir, dotFile), []byte(dot), 0644); err != nil {
		return "", fmt.Errorf("failed to write graph: %w", err)
	}

	rg.logger.WithFields(logrus.Fields{
		"report": path,
		"states": len(data.States),
	}).Info("Exploration report generated")
	return path, nil
}

// BuildReportData flattens a result for the template
func BuildReportData(result *core.DiscoveryResult, title string) (*ReportData, error) {
	if title == "" {
		title = "Exploration Report"
	}
	data := &ReportData{
		Title:       title,
		GeneratedAt: time.Now(),
		SessionID:   result.SessionID,
		Status:      result.Status,
		Statistics:  result.Statistics,
		Coverage:    result.Coverage * 100,
		Metrics:     result.Metrics,
	}
	if result.Err != nil {
		data.Error = result.Err.Error()
	}

	var normal, terminal, errored int
	for _, s := range result.States {
		row := StateRow{
			ID:        s.ID,
			ShortID:   shortID(s.ID),
			Visits:    s.VisitCount,
			Explored:  len(s.ExploredActions),
			Available: len(s.AvailableActions),
			Initial:   s.ID == result.InitialStateID,
			Terminal:  s.IsTerminal,
			Error:     s.IsError,
		}
		if s.Observation != nil {
			row.Location = s.Observation.Location
		}
		data.States = append(data.States, row)

		switch {
		case s.IsError:
			errored++
		case s.IsTerminal:
			terminal++
		default:
			normal++
		}
	}
	sort.SliceStable(data.States, func(i, j int) bool { return data.States[i].Initial && !data.States[j].Initial })

	for _, t := range result.Transitions {
		data.Transitions = append(data.Transitions, TransitionRow{
			From:       shortID(t.FromStateID),
			To:         shortID(t.ToStateID),
			Action:     string(t.ActionKind) + ":" + t.TargetRef,
			Count:      t.Count,
			Reversible: t.Reversible,
		})
	}

	chart, err := json.Marshal(map[string]interface{}{
		"type": "doughnut",
		"data": map[string]interface{}{
			"labels": []string{"Explorable", "Terminal", "Error"},
			"datasets": []map[string]interface{}{{
				"data":            []int{normal, terminal, errored},
				"backgroundColor": []string{"#667eea", "#ecc94b", "#f56565"},
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	data.StateChart = template.JS(chart)
	return data, nil
}

// DOT renders the graph in Graphviz format. The initial state is drawn as a double
// circle, error states red and terminal states grey.
func DOT(states []*graph.DiscoveredState, transitions []*graph.Transition, initial string) string {
	var b strings.Builder
	b.WriteString("digraph exploration {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=circle, fontname=\"Helvetica\"];\n")

	for _, s := range states {
		label := shortID(s.ID)
		if s.Observation != nil && s.Observation.Location != "" {
			label = s.Observation.Location
		}
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if s.ID == initial {
			attrs = append(attrs, "shape=doublecircle")
		}
		switch {
		case s.IsError:
			attrs = append(attrs, "color=red")
		case s.IsTerminal:
			attrs = append(attrs, "style=filled", "fillcolor=lightgrey")
		}
		fmt.Fprintf(&b, "  %q [%s];\n", s.ID, strings.Join(attrs, ", "))
	}

	for _, t := range transitions {
		fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", t.FromStateID, t.ToStateID, string(t.ActionKind)+":"+t.TargetRef)
	}
	b.WriteString("}\n")
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
