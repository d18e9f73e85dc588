package report

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/bytedance/sonic"
	"github.com/devicelab-dev/contacts-runner/pkg/core"
	"github.com/devicelab-dev/contacts-runner/pkg/logger"
)

// Allure result schema types.

// AllureResult represents a single test result in Allure format.
type AllureResult struct {
	UUID          string              `json:"uuid"`
	HistoryID     string              `json:"historyId"`
	FullName      string              `json:"fullName"`
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	Labels        []AllureLabel       `json:"labels"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Steps         []AllureStep        `json:"steps"`
	Attachments   []AllureAttachment  `json:"attachments"`
}

// AllureStep represents a step within a test result.
type AllureStep struct {
	Name        string             `json:"name"`
	Status      string             `json:"status"`
	Stage       string             `json:"stage"`
	Start       int64              `json:"start"`
	Stop        int64              `json:"stop"`
	Attachments []AllureAttachment `json:"attachments"`
}

// AllureAttachment represents a file attachment.
type AllureAttachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// AllureLabel represents a label on a test result.
type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureStatusDetails holds failure message and trace.
type AllureStatusDetails struct {
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

// AllureCategory defines a failure category with regex matching.
type AllureCategory struct {
	Name            string   `json:"name"`
	MatchedStatuses []string `json:"matchedStatuses"`
	MessageRegex    string   `json:"messageRegex"`
}

// AllureExecutor describes the tool that produced the results.
type AllureExecutor struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	ReportName string `json:"reportName"`
}

// writeAllure writes one result file per group plus the metadata files
// Allure reads from allure-results/.
func writeAllure(allureDir string, groups []*TestGroup, sys SystemInfo) error {
	if err := os.MkdirAll(allureDir, 0o755); err != nil {
		return fmt.Errorf("create allure-results dir: %w", err)
	}

	for _, g := range groups {
		result := buildAllureResult(g, sys)

		for _, e := range g.Entries {
			if e.Screenshot != "" {
				copyFile(e.Screenshot, filepath.Join(allureDir, attachmentSource(g, e)))
			}
		}

		data, err := json.ConfigStd.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal allure result for %s: %w", g.Name, err)
		}
		resultPath := filepath.Join(allureDir, g.ID+"-result.json")
		if err := os.WriteFile(resultPath, data, 0o644); err != nil {
			return fmt.Errorf("write allure result %s: %w", g.Name, err)
		}
	}

	if err := writeAllureCategories(allureDir); err != nil {
		return err
	}
	if err := writeAllureEnvironment(allureDir, sys); err != nil {
		return err
	}
	return writeAllureExecutor(allureDir, sys)
}

// buildAllureResult maps a group to an Allure result; every entry is a step.
func buildAllureResult(g *TestGroup, sys SystemInfo) AllureResult {
	startMs := g.StartTime.UnixMilli()
	stopMs := startMs
	if g.EndTime != nil {
		stopMs = g.EndTime.UnixMilli()
	}

	labels := []AllureLabel{
		{Name: "suite", Value: suiteName(g.Name)},
		{Name: "framework", Value: sys.Framework},
		{Name: "language", Value: "go"},
		{Name: "thread", Value: g.Owner},
	}
	if sys.Device != "" {
		labels = append(labels, AllureLabel{Name: "host", Value: sys.Device})
	}

	steps := make([]AllureStep, 0, len(g.Entries))
	attachments := []AllureAttachment{}
	for i, e := range g.Entries {
		stepStop := stopMs
		if i+1 < len(g.Entries) {
			stepStop = g.Entries[i+1].Timestamp.UnixMilli()
		}
		step := AllureStep{
			Name:        e.Message,
			Status:      mapAllureLevel(e.Level),
			Stage:       "finished",
			Start:       e.Timestamp.UnixMilli(),
			Stop:        stepStop,
			Attachments: []AllureAttachment{},
		}
		if e.Screenshot != "" {
			att := AllureAttachment{
				Name:   filepath.Base(e.Screenshot),
				Source: attachmentSource(g, e),
				Type:   core.ContentTypeFor(strings.ToLower(filepath.Ext(e.Screenshot))),
			}
			step.Attachments = append(step.Attachments, att)
			attachments = append(attachments, att)
		}
		steps = append(steps, step)
	}

	return AllureResult{
		UUID:          g.ID,
		HistoryID:     fnv32aHash(g.Name),
		FullName:      g.Name,
		Name:          g.Name,
		Status:        mapAllureStatus(g.Status),
		Stage:         "finished",
		Start:         startMs,
		Stop:          stopMs,
		Labels:        labels,
		StatusDetails: AllureStatusDetails{Message: g.FailureMessage()},
		Steps:         steps,
		Attachments:   attachments,
	}
}

// suiteName takes the class part of "Class.method" test names.
func suiteName(name string) string {
	if i := strings.Index(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

func attachmentSource(g *TestGroup, e Entry) string {
	return g.ID + "-" + filepath.Base(e.Screenshot)
}

// copyFile copies a single file from src to dst. Missing screenshots are
// skipped; the result file still references them.
func copyFile(src, dst string) {
	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		logger.Warn("failed to create %s: %v", dst, err)
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		logger.Warn("failed to copy %s to %s: %v", src, dst, err)
	}
}

// mapAllureStatus maps a test status to the Allure status string.
func mapAllureStatus(s core.TestStatus) string {
	switch s {
	case core.StatusPassed:
		return "passed"
	case core.StatusFailed:
		return "failed"
	case core.StatusErrored:
		return "broken"
	case core.StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

func mapAllureLevel(l Level) string {
	switch l {
	case LevelFail:
		return "failed"
	case LevelSkip:
		return "skipped"
	default:
		return "passed"
	}
}

// fnv32aHash returns a hex-encoded FNV-32a hash of the input string.
func fnv32aHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// writeAllureCategories writes categories.json for failure categorization.
func writeAllureCategories(allureDir string) error {
	categories := []AllureCategory{
		{Name: "Element Not Found", MatchedStatuses: []string{"failed", "broken"}, MessageRegex: "(?i).*element not found.*"},
		{Name: "Element Not Displayed", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*not displayed.*"},
		{Name: "Interaction Failed", MatchedStatuses: []string{"failed", "broken"}, MessageRegex: "(?i).*interaction failed.*|.*could not (tap|type|clear).*"},
		{Name: "Session Error", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*session.*"},
		{Name: "Appium Server", MatchedStatuses: []string{"broken"}, MessageRegex: "(?i).*appium server.*|.*connect to automation server.*"},
		{Name: "Assertion Failed", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*(expected|should).*"},
	}

	data, err := json.ConfigStd.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	path := filepath.Join(allureDir, "categories.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write categories.json: %w", err)
	}

	return nil
}

// writeAllureEnvironment writes environment.properties from the system info.
func writeAllureEnvironment(allureDir string, sys SystemInfo) error {
	var b strings.Builder
	props := []struct{ key, value string }{
		{"platform", sys.Platform},
		{"automation.tool", sys.AutomationTool},
		{"framework", sys.Framework},
		{"tester", sys.Tester},
		{"device", sys.Device},
		{"app.package", sys.AppPackage},
	}
	for _, p := range props {
		if p.value != "" {
			fmt.Fprintf(&b, "%s=%s\n", p.key, p.value)
		}
	}

	path := filepath.Join(allureDir, "environment.properties")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write environment.properties: %w", err)
	}

	return nil
}

// writeAllureExecutor writes executor.json.
func writeAllureExecutor(allureDir string, sys SystemInfo) error {
	executor := AllureExecutor{
		Name:       sys.Framework,
		Type:       "go",
		ReportName: "Contacts Test Report",
	}

	data, err := json.ConfigStd.MarshalIndent(executor, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal executor: %w", err)
	}

	path := filepath.Join(allureDir, "executor.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write executor.json: %w", err)
	}

	return nil
}
