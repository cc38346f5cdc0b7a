package mcpscan

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/cache"
)

// InformationalCodes are issue codes that never fail a scan
var InformationalCodes = map[string]bool{
	"W004": true,
}

const categoryFileNotFound = "file_not_found"

type scanError struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

// asScanError returns the error only when raw is an object carrying a
// message. Strings, nulls and message-less objects are not scanner errors.
func asScanError(raw json.RawMessage) *scanError {
	var e scanError
	if len(raw) == 0 || raw[0] != '{' || json.Unmarshal(raw, &e) != nil || e.Message == "" {
		return nil
	}
	return &e
}

type scanIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type scanEntry struct {
	Issues  []scanIssue     `json:"issues"`
	Labels  []any           `json:"labels"`
	Error   json.RawMessage `json:"error"`
	Servers []struct {
		Error json.RawMessage `json:"error"`
	} `json:"servers"`
}

// Verdict is the classification of one mcp-scan report
type Verdict struct {
	Status  string
	Issues  []cache.ScanIssue
	Message string
}

// Classify interprets mcp-scan JSON output. Output without a JSON report is
// an error rather than a pass: nothing was scanned. Entries that are not
// objects are ignored.
func Classify(output []byte) (Verdict, error) {
	start := bytes.IndexByte(output, '{')
	if start < 0 {
		return Verdict{}, errors.New("mcp-scan produced no JSON output")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(output[start:], &raw); err != nil {
		return Verdict{}, errors.Wrap(err, "failed to parse mcp-scan output")
	}
	entries := make(map[string]scanEntry, len(raw))
	for k, v := range raw {
		var entry scanEntry
		if len(v) > 0 && v[0] == '{' && json.Unmarshal(v, &entry) == nil {
			entries[k] = entry
		}
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []*scanError
	var issues []cache.ScanIssue
	for _, k := range keys {
		entry := entries[k]
		if e := asScanError(entry.Error); e != nil {
			errs = append(errs, e)
		}
		for _, s := range entry.Servers {
			if e := asScanError(s.Error); e != nil {
				errs = append(errs, e)
			}
		}
		for _, i := range entry.Issues {
			if InformationalCodes[i.Code] {
				continue
			}
			issues = append(issues, cache.ScanIssue{Code: i.Code, Message: i.Message})
		}
	}

	if len(errs) > 0 {
		for _, e := range errs {
			if e.Category != categoryFileNotFound {
				return Verdict{Status: cache.ScanError, Message: e.Message}, nil
			}
		}
		return Verdict{Status: cache.ScanSkipped, Message: errs[0].Message}, nil
	}
	if len(issues) > 0 {
		return Verdict{Status: cache.ScanFailed, Issues: issues}, nil
	}
	return Verdict{Status: cache.ScanPassed}, nil
}
