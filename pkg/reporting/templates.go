/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: templates.go
Description: HTML template for the exploration report.
*/

package reporting

// reportTemplate renders a ReportData
const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - Akaylee Explorer</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            min-height: 100vh;
            color: #333;
        }

        .container { max-width: 1400px; margin: 0 auto; padding: 20px; }

        .panel {
            background: rgba(255, 255, 255, 0.95);
            border-radius: 20px;
            padding: 30px;
            margin-bottom: 30px;
            box-shadow: 0 8px 32px rgba(0, 0, 0, 0.1);
        }

        .header { text-align: center; }
        .header h1 { color: #4a5568; font-size: 2.5rem; margin-bottom: 10px; font-weight: 700; }
        .header p { color: #718096; }

        .status { display: inline-block; padding: 4px 12px; border-radius: 12px; color: #fff; font-weight: 600; }
        .status.completed { background: #48bb78; }
        .status.timeout { background: #ecc94b; }
        .status.failed { background: #f56565; }

        .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 20px; margin-bottom: 30px; }
        .card { background: rgba(255, 255, 255, 0.95); border-radius: 16px; padding: 20px; text-align: center; }
        .card .value { font-size: 2rem; font-weight: 700; color: #667eea; }
        .card .label { color: #718096; font-size: 0.9rem; }

        h2 { color: #4a5568; margin-bottom: 20px; }
        table { width: 100%; border-collapse: collapse; font-size: 0.9rem; }
        th, td { padding: 8px 12px; text-align: left; border-bottom: 1px solid #e2e8f0; }
        th { color: #4a5568; }
        code { font-family: 'Fira Code', monospace; font-size: 0.85rem; }
        .tag { padding: 2px 8px; border-radius: 8px; font-size: 0.75rem; margin-right: 4px; }
        .tag.initial { background: #c3dafe; }
        .tag.terminal { background: #fefcbf; }
        .tag.error { background: #fed7d7; }
        .chart { max-width: 360px; margin: 0 auto; }
    </style>
</head>
<body>
<div class="container">
    <div class="panel header">
        <h1>{{.Title}}</h1>
        <p>Session <code>{{.SessionID}}</code> &middot; <span class="status {{.Status}}">{{.Status}}</span></p>
        <p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}} &middot; runtime {{.Metrics.Elapsed}}</p>
        {{if .Error}}<p style="color:#e53e3e; margin-top:10px;">{{.Error}}</p>{{end}}
    </div>

    <div class="cards">
        <div class="card"><div class="value">{{.Statistics.TotalStates}}</div><div class="label">States</div></div>
        <div class="card"><div class="value">{{.Statistics.TotalTransitions}}</div><div class="label">Transitions</div></div>
        <div class="card"><div class="value">{{printf "%.1f" .Coverage}}%</div><div class="label">Action Coverage</div></div>
        <div class="card"><div class="value">{{.Metrics.ActionsPerformed}}</div><div class="label">Actions ({{.Metrics.FailedActions}} failed)</div></div>
        <div class="card"><div class="value">{{.Statistics.MaxDepth}}</div><div class="label">Max Depth</div></div>
        <div class="card"><div class="value">{{.Statistics.CycleCount}}</div><div class="label">Cycles</div></div>
        <div class="card"><div class="value">{{printf "%.2f" .Statistics.AverageBranchingFactor}}</div><div class="label">Branching Factor</div></div>
        <div class="card"><div class="value">{{.Statistics.UnreachableStates}}</div><div class="label">Unreachable</div></div>
    </div>

    <div class="panel">
        <h2>State Breakdown</h2>
        <div class="chart"><canvas id="stateChart"></canvas></div>
    </div>

    <div class="panel">
        <h2>States</h2>
        <table>
            <thead><tr><th>ID</th><th>Location</th><th>Visits</th><th>Explored</th><th>Flags</th></tr></thead>
            <tbody>
            {{range .States}}
                <tr>
                    <td><code title="{{.ID}}">{{.ShortID}}</code></td>
                    <td>{{.Location}}</td>
                    <td>{{.Visits}}</td>
                    <td>{{.Explored}} / {{.Available}}</td>
                    <td>
                        {{if .Initial}}<span class="tag initial">initial</span>{{end}}
                        {{if .Terminal}}<span class="tag terminal">terminal</span>{{end}}
                        {{if .Error}}<span class="tag error">error</span>{{end}}
                    </td>
                </tr>
            {{end}}
            </tbody>
        </table>
    </div>

    <div class="panel">
        <h2>Transitions</h2>
        <table>
            <thead><tr><th>From</th><th>To</th><th>Action</th><th>Count</th><th>Reversible</th></tr></thead>
            <tbody>
            {{range .Transitions}}
                <tr>
                    <td><code>{{.From}}</code></td>
                    <td><code>{{.To}}</code></td>
                    <td><code>{{.Action}}</code></td>
                    <td>{{.Count}}</td>
                    <td>{{if .Reversible}}yes{{else}}no{{end}}</td>
                </tr>
            {{end}}
            </tbody>
        </table>
    </div>
</div>
<script>
    new Chart(document.getElementById('stateChart'), {{.StateChart}});
</script>
</body>
</html>`
