package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Soffice converts presentations to PDF with a headless LibreOffice run.
// The zero value uses the "libreoffice" binary from PATH.
type Soffice struct {
	Binary string
}

func (c *Soffice) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return "libreoffice"
}

func (c *Soffice) Convert(ctx context.Context, inputPath, outDir string) (string, error) {
	bin, err := lookPath(c.binary())
	if err != nil {
		return "", &ConversionError{Tool: c.binary(), Err: err}
	}

	cmd := exec.CommandContext(ctx, bin, "--headless", "--convert-to", "pdf", "--outdir", outDir, inputPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &ConversionError{Tool: c.binary(), Output: diagnostic(out), Err: err}
	}

	// LibreOffice reports success on stdout and names the output after the
	// input basename; it does not exit non-zero for every failure, so the
	// produced file is the ground truth.
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	pdf := filepath.Join(outDir, base+".pdf")
	if _, err := os.Stat(pdf); err != nil {
		return "", &ConversionError{Tool: c.binary(), Output: diagnostic(out), Err: fmt.Errorf("expected output %s: %w", pdf, err)}
	}
	return pdf, nil
}
