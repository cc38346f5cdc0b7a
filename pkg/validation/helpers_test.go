package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Message)
	}
	return out
}

const validSkillContent = `---
name: test-skill
description: Validates files when committing code changes. Use when ensuring code quality.
allowed-tools: Read, Grep, Glob
---

# Test Skill

## Overview

This skill validates files during the commit process to ensure code quality standards are met.

## When to Use

Use this skill when:
- Preparing code for commit
- Running pre-commit hooks

## Instructions

1. Review the file changes
2. Run validation checks

## Examples

### Input Example

` + "```python" + `
files = ["src/main.py", "tests/test_main.py"]
` + "```" + `

### Output Example

` + "```json" + `
{"valid": true, "issues": []}
` + "```" + `

## Best Practices

- Run validation before every commit

## Constraints and Warnings

- Does not modify files automatically
`

const validAgentContent = `---
name: valid-agent
description: Expert agent that provides test reviews. Use PROACTIVELY when writing tests.
tools: Read, Grep, Glob
model: sonnet
---

## Role

You are an expert testing agent specializing in test automation.

## Process

1. Analyze the codebase for test coverage
2. Generate comprehensive tests

## Guidelines

- Follow testing best practices

## Skills Integration

Uses the unit-test skills.

## Common Patterns

- Arrange, act, assert

## Output Format

A markdown report.
`

const validCommandContent = `---
description: Provides a test run with a results report. Use when code changes.
argument-hint: [test-pattern]
allowed-tools: Bash, Read
model: inherit
---

## Overview

This command runs tests matching a pattern and reports results.

## Usage

Run the command with a test pattern to execute specific tests.

## Arguments

- ` + "`test-pattern`" + `: Pattern to match test files

## Examples

` + "```bash" + `
/test-command unit
` + "```" + `
`

const validRuleContent = `---
globs: "**/*.java"
---
# Rule: Java Naming Conventions

## Context
Standardize naming across Java projects.

## Guidelines

- Use PascalCase for class names

## Examples

` + "```java" + `
public class OrderService {}
` + "```" + `
`
