package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	pageNumberText = "%p / %P"
	pageNumberDesc = "font:Helvetica, points:10, pos:bc, off:0 12, scale:1.0 abs, rot:0, fillc:#404040"
	watermarkDesc  = "scale:0.5 rel, rot:0, op:0.35"
)

var imageImportExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true, ".webp": true,
}

// PDFCPU implements the structural operations with pdfcpu.
// pdfcpu calls are not cancellable, ctx is checked between steps.
type PDFCPU struct{}

func pdfConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// classify maps pdfcpu error texts onto typed errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password"):
		return fmt.Errorf("%w: %v", ErrWrongPassword, err)
	case strings.Contains(msg, "page selection"), strings.Contains(msg, "invalid page"):
		return fmt.Errorf("%w: %v", ErrInvalidPages, err)
	case strings.Contains(msg, "no header version"), strings.Contains(msg, "not a pdf"):
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return err
}

func pageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (PDFCPU) finish(out, name string) (Artifact, error) {
	art := Artifact{Path: out, Name: name}
	if n, err := api.PageCountFile(out); err == nil {
		art.Pages = n
	}
	return art, nil
}

// Merge concatenates inputs in order.
func (p PDFCPU) Merge(ctx context.Context, req Request) (Artifact, error) {
	if len(req.Inputs) == 0 {
		return Artifact{}, ErrNoInput
	}
	out := filepath.Join(req.WorkDir, "merged.pdf")
	if err := api.MergeCreateFile(req.Inputs, out, false, pdfConf()); err != nil {
		return Artifact{}, classify(err)
	}
	return p.finish(out, outputName(req, "merged", ".pdf"))
}

// Split writes one part per range ("every N" or a range list) and zips them.
func (p PDFCPU) Split(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	total, err := pageCount(in)
	if err != nil {
		return Artifact{}, err
	}
	ranges, err := ParseSplit(req.Param(ParamPages), total)
	if err != nil {
		return Artifact{}, err
	}
	parts := make([]string, 0, len(ranges))
	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		part := filepath.Join(req.WorkDir, fmt.Sprintf("%s_part_%02d.pdf", baseName(req), i+1))
		if err := api.TrimFile(in, part, []string{r.String()}, pdfConf()); err != nil {
			return Artifact{}, classify(err)
		}
		parts = append(parts, part)
	}
	path, name, err := bundleOrSingle(req.WorkDir, baseName(req)+"_split", parts)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: path, Name: name, Pages: total}, nil
}

// ExtractPages keeps only the selected pages.
func (p PDFCPU) ExtractPages(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	total, err := pageCount(in)
	if err != nil {
		return Artifact{}, err
	}
	ranges, err := ParseRanges(req.Param(ParamPages), total)
	if err != nil {
		return Artifact{}, err
	}
	out := filepath.Join(req.WorkDir, "extracted.pdf")
	if err := api.TrimFile(in, out, Selection(ranges), pdfConf()); err != nil {
		return Artifact{}, classify(err)
	}
	return p.finish(out, outputName(req, "extracted", ".pdf"))
}

// RemovePages drops the selected pages. Removing every page is rejected.
func (p PDFCPU) RemovePages(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	total, err := pageCount(in)
	if err != nil {
		return Artifact{}, err
	}
	ranges, err := ParseRanges(req.Param(ParamPages), total)
	if err != nil {
		return Artifact{}, err
	}
	if Covered(ranges) >= total {
		return Artifact{}, fmt.Errorf("%w: cannot remove all %d pages", ErrInvalidPages, total)
	}
	out := filepath.Join(req.WorkDir, "trimmed.pdf")
	if err := api.RemovePagesFile(in, out, Selection(ranges), pdfConf()); err != nil {
		return Artifact{}, classify(err)
	}
	return p.finish(out, outputName(req, "removed", ".pdf"))
}

// ExtractImages dumps embedded images and zips them.
func (p PDFCPU) ExtractImages(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	dir := filepath.Join(req.WorkDir, "images")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Artifact{}, err
	}
	if err := api.ExtractImagesFile(in, dir, nil, pdfConf()); err != nil {
		return Artifact{}, classify(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Artifact{}, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return Artifact{}, fmt.Errorf("%w: no embedded images", ErrEmptyResult)
	}
	zipName := outputName(req, "images", ".zip")
	dst := filepath.Join(req.WorkDir, zipName)
	if err := Bundle(dst, files); err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: dst, Name: zipName, Pages: len(files)}, nil
}

// Repair rewrites the document after a relaxed parse, which drops broken objects.
func (p PDFCPU) Repair(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	out := filepath.Join(req.WorkDir, "repaired.pdf")
	if err := api.OptimizeFile(in, out, pdfConf()); err != nil {
		return Artifact{}, classify(err)
	}
	return p.finish(out, outputName(req, "repaired", ".pdf"))
}

// Optimize is the pure Go fallback for compression.
func (p PDFCPU) Optimize(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	out := filepath.Join(req.WorkDir, "optimized.pdf")
	if err := api.OptimizeFile(in, out, pdfConf()); err != nil {
		return Artifact{}, classify(err)
	}
	return p.finish(out, outputName(req, "compressed", ".pdf"))
}

// ImagesToPDF puts one image per page.
func (p PDFCPU) ImagesToPDF(ctx context.Context, req Request) (Artifact, error) {
	if len(req.Inputs) == 0 {
		return Artifact{}, ErrNoInput
	}
	for _, in := range req.Inputs {
		if !imageImportExt[strings.ToLower(filepath.Ext(in))] {
			return Artifact{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(in))
		}
	}
	out := filepath.Join(req.WorkDir, "images.pdf")
	if err := api.ImportImagesFile(req.Inputs, out, pdfcpu.DefaultImportConfig(), pdfConf()); err != nil {
		return Artifact{}, classify(err)
	}
	return p.finish(out, outputName(req, "images", ".pdf"))
}

// ParseAngle accepts 90, 180 and 270.
func ParseAngle(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || (n != 90 && n != 180 && n != 270) {
		return 0, fmt.Errorf("%w: angle %q", ErrInvalidParam, s)
	}
	return n, nil
}

// Rotate turns every page clockwise.
func (p PDFCPU) Rotate(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	angle, err := ParseAngle(req.Param(ParamAngle))
	if err != nil {
		return Artifact{}, err
	}
	out := filepath.Join(req.WorkDir, "rotated.pdf")
	if err := api.RotateFile(in, out, angle, nil, pdfConf()); err != nil {
		return Artifact{}, classify(err)
	}
	return p.finish(out, outputName(req, "rotated", ".pdf"))
}

// PageNumbers stamps "n / total" at the bottom center of every page.
func (p PDFCPU) PageNumbers(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	out := filepath.Join(req.WorkDir, "numbered.pdf")
	if err := api.AddTextWatermarksFile(in, out, nil, true, pageNumberText, pageNumberDesc, pdfConf()); err != nil {
		return Artifact{}, classify(err)
	}
	return p.finish(out, outputName(req, "numbered", ".pdf"))
}

// Watermark overlays Inputs[1], an image, on every page of Inputs[0].
func (p PDFCPU) Watermark(ctx context.Context, req Request) (Artifact, error) {
	if len(req.Inputs) < 2 {
		return Artifact{}, fmt.Errorf("%w: need a PDF and an image", ErrNoInput)
	}
	in, img := req.Inputs[0], req.Inputs[1]
	if !imageImportExt[strings.ToLower(filepath.Ext(img))] {
		return Artifact{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(img))
	}
	out := filepath.Join(req.WorkDir, "watermarked.pdf")
	if err := api.AddImageWatermarksFile(in, out, nil, true, img, watermarkDesc, pdfConf()); err != nil {
		return Artifact{}, classify(err)
	}
	return p.finish(out, outputName(req, "watermarked", ".pdf"))
}

// Unlock removes encryption using the supplied password.
func (p PDFCPU) Unlock(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	pw := req.Param(ParamPassword)
	if pw == "" {
		return Artifact{}, fmt.Errorf("%w: empty password", ErrInvalidParam)
	}
	conf := pdfConf()
	conf.UserPW = pw
	conf.OwnerPW = pw
	out := filepath.Join(req.WorkDir, "unlocked.pdf")
	if err := api.DecryptFile(in, out, conf); err != nil {
		return Artifact{}, classify(err)
	}
	return p.finish(out, outputName(req, "unlocked", ".pdf"))
}

// Protect encrypts with AES-256, using the password for both user and owner.
func (p PDFCPU) Protect(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	pw := req.Param(ParamPassword)
	if pw == "" {
		return Artifact{}, fmt.Errorf("%w: empty password", ErrInvalidParam)
	}
	conf := model.NewAESConfiguration(pw, pw, 256)
	conf.ValidationMode = model.ValidationRelaxed
	out := filepath.Join(req.WorkDir, "protected.pdf")
	if err := api.EncryptFile(in, out, conf); err != nil {
		return Artifact{}, classify(err)
	}
	return Artifact{Path: out, Name: outputName(req, "protected", ".pdf")}, nil
}
