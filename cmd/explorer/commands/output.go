/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: output.go
Description: Writes session results to disk: the encoded state graph, the interaction
log and a JSON summary.
*/

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/json-iterator/go"
	"github.com/kleascm/akaylee-explorer/pkg/core"
	"github.com/kleascm/akaylee-explorer/pkg/graph"
	"github.com/kleascm/akaylee-explorer/pkg/logging"
	"github.com/kleascm/akaylee-explorer/pkg/reporting"
)

// Summary is the JSON document written next to the graph
type Summary struct {
	SessionID      string                `json:"session_id"`
	Status         core.SessionStatus    `json:"status"`
	Error          string                `json:"error,omitempty"`
	InitialStateID string                `json:"initial_state_id"`
	Statistics     graph.GraphStatistics `json:"statistics"`
	Coverage       float64               `json:"coverage"`
	HitRate        float64               `json:"hit_rate"`
	Metrics        core.MetricsSnapshot  `json:"metrics"`
	GraphFile      string                `json:"graph_file,omitempty"`
	ReportFile     string                `json:"report_file,omitempty"`
	StartTime      time.Time             `json:"start_time"`
	EndTime        time.Time             `json:"end_time"`
}

// graphFileName names the graph file after its encoding
func graphFileName(format, compression string) string {
	ext := format
	if format == "json-pretty" {
		ext = "json"
	}
	switch compression {
	case "gzip":
		ext += ".gz"
	case "zstd":
		ext += ".zst"
	}
	return "graph." + ext
}

// writeOutputs stores the graph, interactions, HTML report and summary under dir
func writeOutputs(dir string, cfg *core.ExplorerConfig, result *core.DiscoveryResult, logger *logging.Logger) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	summary := Summary{
		SessionID:      result.SessionID,
		Status:         result.Status,
		InitialStateID: result.InitialStateID,
		Statistics:     result.Statistics,
		Coverage:       result.Coverage,
		HitRate:        result.HitRate,
		Metrics:        result.Metrics,
		StartTime:      result.StartTime,
		EndTime:        result.EndTime,
	}
	if result.Err != nil {
		summary.Error = result.Err.Error()
	}

	if len(result.SerializedGraph) > 0 {
		summary.GraphFile = graphFileName(cfg.GraphFormat, cfg.GraphCompression)
		if err := os.WriteFile(filepath.Join(dir, summary.GraphFile), result.SerializedGraph, 0644); err != nil {
			return fmt.Errorf("failed to write graph: %w", err)
		}
	}

	interactions, err := json.MarshalIndent(result.Interactions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode interactions: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "interactions.json"), interactions, 0644); err != nil {
		return fmt.Errorf("failed to write interactions: %w", err)
	}

	report, err := reporting.NewReportGenerator(dir, logger.GetLogger()).Generate(result, "Akaylee Exploration Report")
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	summary.ReportFile = filepath.Base(report)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
