package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/contacts-runner/pkg/core"
)

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title         string
	GeneratedAt   string
	StartedAt     string
	System        SystemInfo
	Summary       Summary
	TotalDuration string
	PassRate      float64
	PieGradient   template.CSS
	Tests         []TestHTMLData
}

// TestHTMLData is one group formatted for HTML.
type TestHTMLData struct {
	Index       int
	Name        string
	Owner       string
	StatusClass string
	StatusLabel string
	DurationStr string
	DurationPct float64
	Entries     []EntryHTMLData
}

// EntryHTMLData is one entry formatted for HTML.
type EntryHTMLData struct {
	Time       string
	Level      string
	Message    string
	Screenshot template.URL // data URI or file URL
	HasImage   bool
}

func statusClass(s core.TestStatus) string {
	switch s {
	case core.StatusPassed:
		return "passed"
	case core.StatusFailed, core.StatusErrored:
		return "failed"
	case core.StatusSkipped:
		return "skipped"
	case core.StatusRunning:
		return "running"
	default:
		return "pending"
	}
}

func buildHTMLData(groups []*TestGroup, opts Options, started, generated time.Time) HTMLData {
	summary := summarize(groups)

	var maxDuration time.Duration
	for _, g := range groups {
		if d := g.Duration(); d > maxDuration {
			maxDuration = d
		}
	}

	tests := make([]TestHTMLData, len(groups))
	for i, g := range groups {
		entries := make([]EntryHTMLData, len(g.Entries))
		for j, e := range g.Entries {
			entry := EntryHTMLData{
				Time:    e.Timestamp.Format("15:04:05"),
				Level:   string(e.Level),
				Message: e.Message,
			}
			if e.Screenshot != "" {
				entry.Screenshot = screenshotURL(e.Screenshot, opts.EmbedScreenshots)
				entry.HasImage = entry.Screenshot != ""
			}
			entries[j] = entry
		}

		var pct float64
		if maxDuration > 0 {
			pct = float64(g.Duration()) / float64(maxDuration) * 100
		}
		tests[i] = TestHTMLData{
			Index:       i,
			Name:        g.Name,
			Owner:       g.Owner,
			StatusClass: statusClass(g.Status),
			StatusLabel: g.Status.String(),
			DurationStr: formatDuration(g.Duration()),
			DurationPct: pct,
			Entries:     entries,
		}
	}

	var passRate float64
	if summary.Total > 0 {
		passRate = float64(summary.Passed) / float64(summary.Total) * 100
	}

	return HTMLData{
		Title:         opts.Title,
		GeneratedAt:   generated.Format("2006-01-02 15:04:05"),
		StartedAt:     started.Format("2006-01-02 15:04:05"),
		System:        opts.System,
		Summary:       summary,
		TotalDuration: formatDuration(generated.Sub(started)),
		PassRate:      passRate,
		PieGradient:   pieGradient(summary),
		Tests:         tests,
	}
}

// pieGradient renders the summary as a conic-gradient.
func pieGradient(s Summary) template.CSS {
	if s.Total == 0 {
		return "background: var(--bg-tertiary);"
	}
	passed := float64(s.Passed) / float64(s.Total) * 100
	failed := passed + float64(s.Failed)/float64(s.Total)*100
	skipped := failed + float64(s.Skipped)/float64(s.Total)*100
	return template.CSS(fmt.Sprintf(
		"background: conic-gradient(var(--passed) 0 %.1f%%, var(--failed) %.1f%% %.1f%%, var(--skipped) %.1f%% %.1f%%, var(--running) %.1f%% 100%%);",
		passed, passed, failed, failed, skipped, skipped))
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func screenshotURL(path string, embed bool) template.URL {
	if embed {
		//nolint:gosec // data URI built from a local screenshot
		return template.URL(loadAsBase64(path))
	}
	//nolint:gosec // local screenshot path
	return template.URL("file://" + filepath.ToSlash(path))
}

func loadAsBase64(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	mimeType := core.ContentTypeFor(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = core.ContentTypePNG
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f9fafb;
            --bg-tertiary: #f3f4f6;
            --text-primary: #000000;
            --text-secondary: rgb(75, 85, 99);
            --text-muted: rgb(107, 114, 128);
            --border-color: #e5e7eb;
            --passed: #22c55e;
            --passed-bg: rgba(34, 197, 94, 0.1);
            --failed: #ef4444;
            --failed-bg: rgba(239, 68, 68, 0.08);
            --skipped: #eab308;
            --warning: #f59e0b;
            --running: #06b6d4;
            --pending: #6b7280;
            --accent: #06b6d4;
        }

        * { box-sizing: border-box; margin: 0; padding: 0; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.5;
        }

        .header {
            background: var(--bg-secondary);
            border-bottom: 1px solid var(--border-color);
            padding: 16px 24px;
        }

        .header-top {
            display: flex;
            align-items: center;
            justify-content: space-between;
            margin-bottom: 16px;
        }

        .header-title { display: flex; flex-direction: column; }
        .header-title-main { font-size: 18px; font-weight: 600; }
        .header-title-sub { font-size: 12px; color: var(--text-secondary); }

        .platform-badge {
            padding: 6px 14px;
            background: var(--accent);
            color: white;
            border-radius: 6px;
            font-size: 13px;
            font-weight: 500;
        }

        .dashboard { display: flex; gap: 24px; flex-wrap: wrap; align-items: center; }

        .chart-container { display: flex; align-items: center; gap: 16px; }

        .pie-chart { width: 80px; height: 80px; border-radius: 50%; position: relative; }

        .pie-center {
            position: absolute;
            top: 50%;
            left: 50%;
            transform: translate(-50%, -50%);
            background: var(--bg-secondary);
            width: 50px;
            height: 50px;
            border-radius: 50%;
            display: flex;
            align-items: center;
            justify-content: center;
            font-size: 13px;
            font-weight: 600;
        }

        .chart-legend { display: flex; flex-direction: column; gap: 4px; }
        .legend-item { display: flex; align-items: center; gap: 8px; font-size: 13px; }
        .legend-dot { width: 10px; height: 10px; border-radius: 50%; }
        .legend-dot.passed { background: var(--passed); }
        .legend-dot.failed { background: var(--failed); }
        .legend-dot.skipped { background: var(--skipped); }

        .env-card {
            background: var(--bg-primary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 12px 16px;
            display: grid;
            grid-template-columns: repeat(2, 1fr);
            gap: 8px 24px;
            font-size: 13px;
        }

        .env-item { display: flex; gap: 8px; }
        .env-label { color: var(--text-muted); min-width: 110px; }
        .env-value { color: var(--text-primary); font-weight: 500; }

        .test-items { padding: 16px 24px; }

        .test-item {
            margin-bottom: 8px;
            background: var(--bg-primary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
        }

        .test-item.failed {
            background: linear-gradient(90deg, var(--failed-bg) 0%, var(--bg-primary) 50%);
        }

        .test-item summary {
            display: flex;
            align-items: center;
            gap: 12px;
            padding: 12px;
            cursor: pointer;
            list-style: none;
        }

        .status-dot { width: 10px; height: 10px; border-radius: 50%; flex-shrink: 0; }
        .status-dot.passed { background: var(--passed); }
        .status-dot.failed { background: var(--failed); }
        .status-dot.skipped { background: var(--skipped); }
        .status-dot.running { background: var(--running); }
        .status-dot.pending { background: var(--pending); }

        .test-name { font-size: 14px; font-weight: 500; flex: 1; }
        .test-meta { font-size: 12px; color: var(--text-muted); display: flex; gap: 12px; align-items: center; }

        .duration-bar { width: 120px; height: 4px; background: var(--bg-tertiary); border-radius: 2px; overflow: hidden; }
        .duration-fill { height: 100%; background: var(--accent); border-radius: 2px; }

        .entry-list { border-top: 1px solid var(--border-color); }

        .entry {
            display: grid;
            grid-template-columns: 80px 80px 1fr;
            gap: 8px;
            padding: 6px 12px;
            font-size: 13px;
            border-bottom: 1px solid var(--bg-tertiary);
        }

        .entry-time { color: var(--text-muted); font-family: monospace; }
        .entry-level { font-weight: 600; text-transform: uppercase; font-size: 11px; }
        .entry-level.pass { color: var(--passed); }
        .entry-level.fail { color: var(--failed); }
        .entry-level.warning { color: var(--warning); }
        .entry-level.info { color: var(--accent); }
        .entry-level.skip { color: var(--skipped); }

        .entry img {
            display: block;
            max-width: 240px;
            margin-top: 6px;
            border: 1px solid var(--border-color);
            border-radius: 4px;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="header-top">
            <div class="header-title">
                <span class="header-title-main">{{.Title}}</span>
                <span class="header-title-sub">Started {{.StartedAt}} &middot; generated {{.GeneratedAt}} &middot; {{.TotalDuration}}</span>
            </div>
            <div class="platform-badge">{{.System.Platform}}</div>
        </div>
        <div class="dashboard">
            <div class="chart-container">
                <div class="pie-chart" style="{{.PieGradient}}">
                    <div class="pie-center">{{printf "%.0f" .PassRate}}%</div>
                </div>
                <div class="chart-legend">
                    <div class="legend-item"><span class="legend-dot passed"></span><span>{{.Summary.Passed}} passed</span></div>
                    <div class="legend-item"><span class="legend-dot failed"></span><span>{{.Summary.Failed}} failed</span></div>
                    {{if .Summary.Skipped}}<div class="legend-item"><span class="legend-dot skipped"></span><span>{{.Summary.Skipped}} skipped</span></div>{{end}}
                </div>
            </div>
            <div class="env-card">
                <div class="env-item"><span class="env-label">Platform</span><span class="env-value">{{.System.Platform}}</span></div>
                <div class="env-item"><span class="env-label">Automation Tool</span><span class="env-value">{{.System.AutomationTool}}</span></div>
                <div class="env-item"><span class="env-label">Framework</span><span class="env-value">{{.System.Framework}}</span></div>
                <div class="env-item"><span class="env-label">Tester</span><span class="env-value">{{.System.Tester}}</span></div>
                {{if .System.Device}}<div class="env-item"><span class="env-label">Device</span><span class="env-value">{{.System.Device}}</span></div>{{end}}
                {{if .System.AppPackage}}<div class="env-item"><span class="env-label">App</span><span class="env-value">{{.System.AppPackage}}</span></div>{{end}}
            </div>
        </div>
    </div>

    <div class="test-items">
        {{range .Tests}}
        <details class="test-item {{.StatusClass}}" id="test-{{.Index}}"{{if eq .StatusClass "failed"}} open{{end}}>
            <summary>
                <span class="status-dot {{.StatusClass}}"></span>
                <span class="test-name">{{.Name}}</span>
                <span class="test-meta">
                    <span>{{.StatusLabel}}</span>
                    <span>{{.Owner}}</span>
                    <span>{{len .Entries}} entries</span>
                    <span class="duration-bar"><span class="duration-fill" style="display:block;width: {{printf "%.1f" .DurationPct}}%"></span></span>
                    <span>{{.DurationStr}}</span>
                </span>
            </summary>
            <div class="entry-list">
                {{range .Entries}}
                <div class="entry">
                    <span class="entry-time">{{.Time}}</span>
                    <span class="entry-level {{.Level}}">{{.Level}}</span>
                    <span class="entry-message">{{.Message}}{{if .HasImage}}<img src="{{.Screenshot}}" alt="screenshot">{{end}}</span>
                </div>
                {{end}}
            </div>
        </details>
        {{else}}
        <p class="test-meta">No tests were recorded.</p>
        {{end}}
    </div>
</body>
</html>
`
