// Package report persists analysis findings to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wudi/deckcheck/analyze"
)

// WriteJSON writes findings to path as an indented JSON array. A nil
// findings slice serializes as [].
func WriteJSON(path string, findings []analyze.Finding) error {
	if findings == nil {
		findings = []analyze.Finding{}
	}
	data, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return atomicWrite(path, append(data, '\n'))
}

// atomicWrite lands data at path via a temp file in the destination
// directory and a rename, so readers never observe a partial file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadJSON loads a report previously written by WriteJSON.
func ReadJSON(path string) ([]analyze.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var findings []analyze.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return findings, nil
}

// Markdown renders findings as a human-readable summary.
func Markdown(findings []analyze.Finding) string {
	var b strings.Builder
	b.WriteString("# Inconsistency Report\n\n")
	if len(findings) == 0 {
		b.WriteString("No inconsistencies found.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d finding(s).\n\n", len(findings))
	b.WriteString("| # | Kind | Slides | Confidence | Description |\n")
	b.WriteString("|---|------|--------|------------|-------------|\n")
	for i, f := range findings {
		fmt.Fprintf(&b, "| %d | %s | %s | %.2f | %s |\n",
			i+1, f.Kind, slideList(f.Slides), f.Confidence, tableCell(f.Description))
	}
	return b.String()
}

func slideList(slides []int) string {
	if len(slides) == 0 {
		return "-"
	}
	parts := make([]string, len(slides))
	for i, n := range slides {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// tableCell keeps a description on one table row.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}
