package ops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Bundle writes files into a zip archive at dst, flat, under their base names.
func Bundle(dst string, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("bundle: %w", ErrEmptyResult)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("bundle: create %s: %w", dst, err)
	}
	zw := zip.NewWriter(out)
	for _, f := range files {
		if err := addToZip(zw, f); err != nil {
			_ = zw.Close()
			_ = out.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("bundle: finish: %w", err)
	}
	return out.Close()
}

func addToZip(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("bundle: open %s: %w", path, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("bundle: stat %s: %w", path, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("bundle: header %s: %w", path, err)
	}
	hdr.Name = filepath.Base(path)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("bundle: entry %s: %w", path, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("bundle: write %s: %w", path, err)
	}
	return nil
}

// bundleOrSingle returns the only file as is, or zips several into name.zip.
func bundleOrSingle(workDir, name string, files []string) (string, string, error) {
	switch len(files) {
	case 0:
		return "", "", ErrEmptyResult
	case 1:
		return files[0], filepath.Base(files[0]), nil
	}
	zipName := name + ".zip"
	dst := filepath.Join(workDir, zipName)
	if err := Bundle(dst, files); err != nil {
		return "", "", err
	}
	return dst, zipName, nil
}
