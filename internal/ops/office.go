package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OfficeExt lists the document types LibreOffice converts to PDF.
var OfficeExt = map[string]bool{
	".doc": true, ".docx": true, ".odt": true, ".rtf": true, ".txt": true,
	".xls": true, ".xlsx": true, ".ods": true,
	".ppt": true, ".pptx": true, ".odp": true,
}

// IsOffice reports whether name has a convertible office extension.
func IsOffice(name string) bool {
	return OfficeExt[strings.ToLower(filepath.Ext(name))]
}

// Office converts documents with a headless LibreOffice.
type Office struct {
	LibreOffice Tool
}

func (o Office) Run(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	if !IsOffice(in) {
		return Artifact{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(in))
	}
	// A private profile lets conversions run in parallel.
	profile := "file://" + filepath.ToSlash(filepath.Join(req.WorkDir, ".lo-profile"))
	err = o.LibreOffice.Run(ctx, req.WorkDir,
		"-env:UserInstallation="+profile,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", req.WorkDir,
		in,
	)
	if err != nil {
		return Artifact{}, err
	}
	stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	out := filepath.Join(req.WorkDir, stem+".pdf")
	if _, err := os.Stat(out); err != nil {
		return Artifact{}, fmt.Errorf("%w: libreoffice wrote no output", ErrEmptyResult)
	}
	return Artifact{Path: out, Name: baseName(req) + ".pdf"}, nil
}
