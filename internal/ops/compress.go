package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Compression levels accepted in ParamLevel.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

var gsSettings = map[string]string{
	LevelLow:    "/printer",
	LevelMedium: "/ebook",
	LevelHigh:   "/screen",
}

// ParseLevel maps "1", "2", "3" (or the level names) to a compression level.
func ParseLevel(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", LevelLow:
		return LevelLow, nil
	case "2", LevelMedium:
		return LevelMedium, nil
	case "3", LevelHigh:
		return LevelHigh, nil
	}
	return "", fmt.Errorf("%w: compression level %q", ErrInvalidParam, s)
}

// Compressor shrinks PDFs with Ghostscript and falls back to pdfcpu when
// Ghostscript is not installed.
type Compressor struct {
	Ghostscript Tool
	Fallback    PDFCPU
}

func (c Compressor) Run(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	level, err := ParseLevel(req.Param(ParamLevel))
	if err != nil {
		return Artifact{}, err
	}
	info, err := os.Stat(in)
	if err != nil {
		return Artifact{}, err
	}

	var art Artifact
	if c.Ghostscript.Available() {
		out := filepath.Join(req.WorkDir, "compressed.pdf")
		err = c.Ghostscript.Run(ctx, req.WorkDir,
			"-sDEVICE=pdfwrite",
			"-dCompatibilityLevel=1.4",
			"-dPDFSETTINGS="+gsSettings[level],
			"-dNOPAUSE", "-dQUIET", "-dBATCH", "-dSAFER",
			"-sOutputFile="+out,
			in,
		)
		if err != nil {
			return Artifact{}, err
		}
		art = Artifact{Path: out, Name: outputName(req, "compressed", ".pdf")}
	} else {
		art, err = c.Fallback.Optimize(ctx, req)
		if err != nil {
			return Artifact{}, err
		}
	}

	outInfo, err := os.Stat(art.Path)
	if err != nil {
		return Artifact{}, err
	}
	art.Size = outInfo.Size()
	art.OriginalSize = info.Size()
	// Keep the input when re-encoding made it larger.
	if art.Size >= art.OriginalSize {
		if err := copyFile(in, art.Path); err != nil {
			return Artifact{}, err
		}
		art.Size = art.OriginalSize
	}
	return art, nil
}

// Saved returns the percentage saved by a compression, 0 when nothing was saved.
func (a Artifact) Saved() float64 {
	if a.OriginalSize <= 0 || a.Size >= a.OriginalSize {
		return 0
	}
	return float64(a.OriginalSize-a.Size) * 100 / float64(a.OriginalSize)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
