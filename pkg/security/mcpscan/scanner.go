package mcpscan

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/devkit-tools/devkit-validator/pkg/cache"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
)

// ScannerName is recorded in scan history
const ScannerName = "mcp-scan"

// Outcome is the result of scanning one target
type Outcome struct {
	Target
	Verdict
	Duration time.Duration
}

// Scanner runs mcp-scan over targets with bounded parallelism
type Scanner struct {
	runner Runner
	jobs   int
}

// NewScanner creates a scanner. jobs below one means sequential.
func NewScanner(runner Runner, jobs int) *Scanner {
	if jobs < 1 {
		jobs = 1
	}
	return &Scanner{runner: runner, jobs: jobs}
}

// Scan scans every target and returns outcomes in target order. Rules are
// scanned through their parent directory once; further rules of the same
// directory are reported as passed.
func (s *Scanner) Scan(ctx context.Context, targets []Target) ([]Outcome, error) {
	outcomes := make([]Outcome, len(targets))
	scannedDirs := map[string]bool{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)
	for i, t := range targets {
		outcomes[i].Target = t
		scanPath := t.Path
		if t.Kind == KindRule {
			scanPath = filepath.Dir(t.Path)
			if scannedDirs[scanPath] {
				outcomes[i].Verdict = Verdict{Status: cache.ScanPassed, Message: "covered by directory scan"}
				continue
			}
			scannedDirs[scanPath] = true
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			outcomes[i].Verdict = s.scanOne(gctx, scanPath)
			outcomes[i].Duration = time.Since(start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "scan interrupted")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "scan interrupted")
	}
	return outcomes, nil
}

func (s *Scanner) scanOne(ctx context.Context, target string) Verdict {
	log := logger.G(ctx).WithField("target", target).WithField("runner", s.runner.Name())
	log.Debug("running mcp-scan")

	output, err := s.runner.Scan(ctx, target)
	if err != nil {
		log.WithError(err).Warn("mcp-scan failed")
		return Verdict{Status: cache.ScanError, Message: err.Error()}
	}
	v, err := Classify(output)
	if err != nil {
		log.WithError(err).Warn("unreadable mcp-scan output")
		return Verdict{Status: cache.ScanError, Message: err.Error()}
	}
	return v
}

// Counts tallies outcomes by status
func Counts(outcomes []Outcome) map[string]int {
	counts := map[string]int{}
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return counts
}

// ExitCode is 1 when any target failed. Scanner errors do not block.
func ExitCode(outcomes []Outcome) int {
	if Counts(outcomes)[cache.ScanFailed] > 0 {
		return 1
	}
	return 0
}

// Records converts outcomes into scan history rows
func Records(runID string, outcomes []Outcome) []cache.ScanRecord {
	records := make([]cache.ScanRecord, 0, len(outcomes))
	for _, o := range outcomes {
		issues := o.Issues
		if o.Message != "" && o.Status != cache.ScanPassed {
			issues = append([]cache.ScanIssue{{Message: o.Message}}, issues...)
		}
		records = append(records, cache.ScanRecord{
			RunID:         runID,
			Scanner:       ScannerName,
			Component:     o.Rel,
			ComponentType: o.Kind,
			Status:        o.Status,
			Issues:        issues,
		})
	}
	return records
}
