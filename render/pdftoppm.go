package render

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

const pagePrefix = "page"

// Pdftoppm rasterizes PDF pages to PNG images using Poppler's pdftoppm.
// Dir optionally points at a Poppler bin directory; DPI defaults to 200.
type Pdftoppm struct {
	Dir string
	DPI int
}

func (r *Pdftoppm) binary() string {
	if r.Dir != "" {
		return filepath.Join(r.Dir, "pdftoppm")
	}
	return "pdftoppm"
}

func (r *Pdftoppm) dpi() int {
	if r.DPI > 0 {
		return r.DPI
	}
	return 200
}

func (r *Pdftoppm) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	bin, err := lookPath(r.binary())
	if err != nil {
		return nil, &RasterizationError{Tool: r.binary(), Err: err}
	}

	prefix := filepath.Join(outDir, pagePrefix)
	cmd := exec.CommandContext(ctx, bin, "-png", "-r", strconv.Itoa(r.dpi()), pdfPath, prefix)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &RasterizationError{Tool: r.binary(), Output: diagnostic(out), Err: err}
	}

	pages, err := collectPages(outDir)
	if err != nil {
		return nil, &RasterizationError{Tool: r.binary(), Err: err}
	}
	if len(pages) == 0 {
		return nil, &RasterizationError{Tool: r.binary(), Output: diagnostic(out), Err: errors.New("no pages produced")}
	}
	return pages, nil
}

var pageNamePattern = regexp.MustCompile(`^` + pagePrefix + `-(\d+)\.png$`)

// collectPages orders pdftoppm output numerically by page suffix. pdftoppm
// zero-pads page numbers, so lexicographic order breaks past nine pages when
// padding widths mix.
func collectPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type page struct {
		n    int
		path string
	}
	var pages []page
	for _, e := range entries {
		m := pageNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.path)
	}
	return out, nil
}
