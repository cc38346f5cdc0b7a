package trusthub

import (
	"context"
	"fmt"
	"path"

	"github.com/devkit-tools/devkit-validator/pkg/cache"
)

// ScannerName is recorded in scan history
const ScannerName = "trust-hub"

// Env is the pull request context read from GitHub Actions variables
type Env struct {
	Repository string
	HeadRef    string
	BaseRef    string
}

// EnvFrom reads GITHUB_REPOSITORY, GITHUB_HEAD_REF and GITHUB_BASE_REF.
// ok is false when the check cannot run, outside a pull request.
func EnvFrom(getenv func(string) string) (env Env, ok bool) {
	env = Env{
		Repository: getenv("GITHUB_REPOSITORY"),
		HeadRef:    getenv("GITHUB_HEAD_REF"),
		BaseRef:    getenv("GITHUB_BASE_REF"),
	}
	if env.BaseRef == "" {
		env.BaseRef = "main"
	}
	return env, env.Repository != "" && env.HeadRef != ""
}

// BaseRevision is the remote branch changes are compared against
func (e Env) BaseRevision() string {
	return "origin/" + e.BaseRef
}

// RawURL is where the skill is served from on the head branch
func (e Env) RawURL(relPath string) string {
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/refs/heads/%s/%s", e.Repository, e.HeadRef, relPath)
}

// SkillFiles keeps the SKILL.md files of a slash-form change list
func SkillFiles(changed []string) []string {
	var out []string
	for _, c := range changed {
		if path.Base(c) == "SKILL.md" {
			out = append(out, c)
		}
	}
	return out
}

// Outcome is the verdict for one skill. Status is one of cache.ScanPassed,
// cache.ScanFailed or cache.ScanWarning.
type Outcome struct {
	Path    string
	URL     string
	Status  string
	Message string
}

// Check looks up every skill sequentially. Only an unsafe verdict fails;
// unknown statuses and API failures become warnings.
func Check(ctx context.Context, client *Client, env Env, skills []string) []Outcome {
	outcomes := make([]Outcome, 0, len(skills))
	for _, p := range skills {
		o := Outcome{Path: p, URL: env.RawURL(p)}
		resp, err := client.Lookup(ctx, o.URL)
		switch {
		case err != nil:
			o.Status = cache.ScanWarning
			o.Message = err.Error()
		case resp.Status == StatusSafe:
			o.Status = cache.ScanPassed
		case resp.Status == StatusUnsafe:
			o.Status = cache.ScanFailed
			o.Message = resp.Reason
			if o.Message == "" {
				o.Message = "no reason given"
			}
		default:
			o.Status = cache.ScanWarning
			o.Message = fmt.Sprintf("unexpected status %q", resp.Status)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// ExitCode is 1 when any skill is unsafe
func ExitCode(outcomes []Outcome) int {
	for _, o := range outcomes {
		if o.Status == cache.ScanFailed {
			return 1
		}
	}
	return 0
}

// Records converts outcomes into scan history rows
func Records(runID string, outcomes []Outcome) []cache.ScanRecord {
	records := make([]cache.ScanRecord, 0, len(outcomes))
	for _, o := range outcomes {
		var issues []cache.ScanIssue
		if o.Message != "" {
			issues = []cache.ScanIssue{{Message: o.Message}}
		}
		records = append(records, cache.ScanRecord{
			RunID:         runID,
			Scanner:       ScannerName,
			Component:     o.Path,
			ComponentType: "skill",
			Status:        o.Status,
			Issues:        issues,
		})
	}
	return records
}
