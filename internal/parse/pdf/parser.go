// Package pdf parses the MPFM hourly/daily production reports and the PVT
// calibration report (spec §4.B.2) by extracting the PDF text layer with
// github.com/pdfcpu/pdfcpu/pkg/api and matching it against the regex
// grammars in grammar.go.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/oilfield/sgmfm/internal/domain"
	"github.com/oilfield/sgmfm/internal/parse"
)

// Parser implements parse.Parser for MPFM PDF reports.
type Parser struct {
	Shape domain.ReportShape
}

func (p Parser) Parse(filename string, content []byte) parse.ParseOutcome {
	var out parse.ParseOutcome

	text, err := extractText(content)
	if err != nil {
		out.Fail("pdf: extracting text layer: " + err.Error())
		return out
	}
	if strings.TrimSpace(text) == "" {
		out.Fail("pdf: empty text layer")
		return out
	}

	switch {
	case p.Shape == domain.ShapeMPFMPVTCalibration || subShapeCalibrationRe.MatchString(text):
		return parseCalibration(filename, text)
	default:
		return parseProduction(filename, text)
	}
}

// extractText writes content to a temp file, runs pdfcpu's text extraction
// into a temp directory, and concatenates the resulting per-page files.
func extractText(content []byte) (string, error) {
	dir, err := os.MkdirTemp("", "sgmfm-pdf-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	inFile := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(inFile, content, 0o600); err != nil {
		return "", err
	}

	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0o700); err != nil {
		return "", err
	}

	if err := api.ExtractTextFile(inFile, outDir, nil); err != nil {
		return "", fmt.Errorf("pdfcpu extract text: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, n := range names {
		b, err := os.ReadFile(filepath.Join(outDir, n))
		if err != nil {
			return "", err
		}
		sb.Write(b)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func parseTag(text, filename string) string {
	if m := tagRe.FindString(filename); m != "" {
		return m
	}
	return tagRe.FindString(text)
}

func parseBank(text, filename string) string {
	if m := bankFileRe.FindStringSubmatch(filename); m != nil {
		return "B" + m[1]
	}
	if m := bankNameRe.FindStringSubmatch(text); m != nil {
		return "B" + m[1]
	}
	return ""
}
