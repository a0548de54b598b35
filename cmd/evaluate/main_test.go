package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"ct-preinstall/internal/conformity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const compliantSite = `
room_length: 6.5
room_width: 4.2
room_height: 2.43
door_width: 1.2
floor_capacity: 1000
electrical_power: 380V
`

func TestRun_Pass(t *testing.T) {
	site := writeFile(t, "site.yaml", compliantSite)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-site", site, "-scanner", "neuviz ace"}, &stdout, &stderr)
	assert.Equal(t, exitPass, code, stderr.String())
	assert.Contains(t, stdout.String(), "Verdict: PASS")
	assert.Contains(t, stdout.String(), "Scanner: NeuViz ACE")
}

func TestRun_FailJSON(t *testing.T) {
	site := writeFile(t, "site.yaml", `
room_length: 6.0
room_width: 4.0
room_height: 2.3
`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-site", site, "-scanner", "NeuViz ACE", "-json"}, &stdout, &stderr)
	assert.Equal(t, exitFail, code)

	var a conformity.Assessment
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &a))
	assert.Equal(t, 25.0, a.Summary.Score)
	assert.Equal(t, 3, a.Summary.CriticalIssues)
}

func TestRun_PolicyAndScannerFile(t *testing.T) {
	site := writeFile(t, "site.yaml", compliantSite)
	scanner := writeFile(t, "scanner.yaml", `
name: Prototype
min_room_length: 7
power_requirement: 380V
`)
	policy := writeFile(t, "policy.yaml", "pass_threshold: 80\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-site", site, "-scanner-file", scanner, "-policy", policy, "-json"}, &stdout, &stderr)
	assert.Equal(t, exitFail, code, stderr.String())

	var a conformity.Assessment
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &a))
	assert.Equal(t, 80.0, a.Summary.PassThreshold)
	assert.Equal(t, 1, a.Summary.CriticalIssues)
}

func TestRun_InvalidInput(t *testing.T) {
	site := writeFile(t, "site.yaml", compliantSite)
	bad := writeFile(t, "bad.yaml", "room_length: 6\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", nil, "usage"},
		{"both scanners", []string{"-site", site, "-scanner", "NeuViz ACE", "-scanner-file", site}, "usage"},
		{"unknown scanner", []string{"-site", site, "-scanner", "Nope"}, "unknown model"},
		{"missing file", []string{"-site", "/nonexistent.yaml", "-scanner", "NeuViz ACE"}, "site:"},
		{"invalid site", []string{"-site", bad, "-scanner", "NeuViz ACE"}, "room_width is required"},
		{"bad policy", []string{"-site", site, "-scanner", "NeuViz ACE", "-policy", writeFile(t, "p.yaml", "pass_threshold: 150\n")}, "policy:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, exitInvalid, run(tt.args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestRun_List(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitPass, run([]string{"-list"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Siemens SOMATOM")
}
