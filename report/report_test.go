package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RootLUG/aura/finding"
)

func sampleReport() *Report {
	return &Report{
		Name: "badpkg-1.0.zip",
		Findings: []*finding.Finding{
			finding.New("/tmp/badpkg-1.0.zip",
				"Archive contains an entry referencing a parent directory",
				"suspicious_archive_entry#parent_reference#../evil.py#/tmp/badpkg-1.0.zip",
				50,
				finding.NewExtra().
					Set("entry_type", "parent_reference").
					Set("entry_path", "../evil.py")),
			finding.New("/tmp/badpkg-1.0/setup.py",
				"Generation of cryptography key detected",
				"crypto#gen_key#/tmp/badpkg-1.0/setup.py#12",
				100,
				finding.NewExtra().
					Set("function", "Crypto.PublicKey.RSA.generate").
					Set("key_type", "rsa").
					Set("key_size", int64(1024))),
			finding.New("/tmp/badpkg-1.0.zip",
				"Could not open the archive for analysis",
				"archive_anomaly#read_error#/tmp/nested.zip",
				10, nil),
		},
	}
}

func TestScoreSumsFindings(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 160, sampleReport().Score())
}

func TestSeverityLevels(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "note", severityLevel(0))
	assert.Equal(t, "note", severityLevel(49))
	assert.Equal(t, "warning", severityLevel(50))
	assert.Equal(t, "warning", severityLevel(99))
	assert.Equal(t, "error", severityLevel(100))
}

func TestWriteJSONKeepsExtraOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, `"score": 160`)
	// entry_type was set before entry_path, so it must serialize first.
	assert.Less(t,
		strings.Index(out, `"entry_type"`),
		strings.Index(out, `"entry_path"`))
	assert.Less(t,
		strings.Index(out, `"key_type"`),
		strings.Index(out, `"key_size"`))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "badpkg-1.0.zip", decoded["name"])
	assert.Len(t, decoded["detections"], 3)
}

func TestWriteSARIF(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, sampleReport()))

	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name string `json:"name"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID     string         `json:"ruleId"`
				Level      string         `json:"level"`
				Properties map[string]any `json:"properties"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	assert.Equal(t, "aura", doc.Runs[0].Tool.Driver.Name)
	require.Len(t, doc.Runs[0].Results, 3)

	first := doc.Runs[0].Results[0]
	assert.Equal(t, "suspicious_archive_entry", first.RuleID)
	assert.Equal(t, "warning", first.Level)
	assert.Equal(t, "parent_reference", first.Properties["entry_type"])

	second := doc.Runs[0].Results[1]
	assert.Equal(t, "crypto", second.RuleID)
	assert.Equal(t, "error", second.Level)

	third := doc.Runs[0].Results[2]
	assert.Equal(t, "archive_anomaly", third.RuleID)
	assert.Equal(t, "note", third.Level)
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport()))

	// Colorization may interleave escape codes, so the header is asserted
	// in pieces.
	out := buf.String()
	assert.Contains(t, out, "badpkg-1.0.zip")
	assert.Contains(t, out, "(total score 160)")
	assert.Contains(t, out, "Generation of cryptography key detected")
	assert.Contains(t, out, "key_size: 1024")

	var empty bytes.Buffer
	require.NoError(t, WriteText(&empty, &Report{Name: "clean"}))
	assert.Contains(t, empty.String(), "no detections")
}

func TestWriteDispatchesByFormat(t *testing.T) {
	t.Parallel()

	for _, format := range []string{FormatText, FormatJSON, FormatSARIF, ""} {
		var buf bytes.Buffer
		assert.NoError(t, Write(&buf, format, sampleReport()), "format %q", format)
		assert.NotZero(t, buf.Len())
	}

	var buf bytes.Buffer
	assert.Error(t, Write(&buf, "xml", sampleReport()))
}
