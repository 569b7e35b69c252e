package ops

import (
	"bufio"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Renderer rasterizes pages and pulls text through MuPDF.
type Renderer struct {
	DPI      float64
	Quality  int
	MaxPages int
}

func openDoc(path string) (*fitz.Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "password") || strings.Contains(msg, "encrypt") {
			return nil, fmt.Errorf("%w: %v", ErrWrongPassword, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return doc, nil
}

// ToImages renders every page as JPEG; several pages are zipped.
func (r Renderer) ToImages(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	doc, err := openDoc(in)
	if err != nil {
		return Artifact{}, err
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return Artifact{}, fmt.Errorf("%w: document has no pages", ErrEmptyResult)
	}
	n := total
	if r.MaxPages > 0 && n > r.MaxPages {
		n = r.MaxPages
	}

	base := baseName(req)
	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}
		img, err := doc.ImageDPI(i, r.DPI)
		if err != nil {
			return Artifact{}, fmt.Errorf("render page %d: %w", i+1, err)
		}
		out := filepath.Join(req.WorkDir, fmt.Sprintf("%s_page_%03d.jpg", base, i+1))
		f, err := os.Create(out)
		if err != nil {
			return Artifact{}, err
		}
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: r.Quality})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return Artifact{}, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		pages = append(pages, out)
	}

	path, name, err := bundleOrSingle(req.WorkDir, base+"_pages", pages)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: path, Name: name, Pages: total}, nil
}

// ExtractText writes the text layer of every page to a .txt file.
func (r Renderer) ExtractText(ctx context.Context, req Request) (Artifact, error) {
	in, err := singleInput(req)
	if err != nil {
		return Artifact{}, err
	}
	doc, err := openDoc(in)
	if err != nil {
		return Artifact{}, err
	}
	defer doc.Close()

	name := outputName(req, "text", ".txt")
	out := filepath.Join(req.WorkDir, name)
	f, err := os.Create(out)
	if err != nil {
		return Artifact{}, err
	}
	w := bufio.NewWriter(f)

	total := doc.NumPage()
	chars := 0
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return Artifact{}, err
		}
		text, err := doc.Text(i)
		if err != nil {
			_ = f.Close()
			return Artifact{}, fmt.Errorf("text page %d: %w", i+1, err)
		}
		text = strings.TrimSpace(text)
		chars += len(text)
		fmt.Fprintf(w, "--- Page %d ---\n%s\n\n", i+1, text)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return Artifact{}, err
	}
	if err := f.Close(); err != nil {
		return Artifact{}, err
	}
	if chars == 0 {
		return Artifact{}, fmt.Errorf("%w: no text layer", ErrEmptyResult)
	}
	return Artifact{Path: out, Name: name, Pages: total}, nil
}
