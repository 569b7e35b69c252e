package ops

import (
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// baseName is the user's file name without extension, made safe for disk.
func baseName(req Request) string {
	name := req.Param(ParamFileName)
	if name == "" && len(req.Inputs) > 0 {
		name = filepath.Base(req.Inputs[0])
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Trim(unsafeName.ReplaceAllString(name, "_"), "_.")
	if name == "" {
		return "document"
	}
	if r := []rune(name); len(r) > 64 {
		name = string(r[:64])
	}
	return name
}

// outputName builds "<base>_<suffix><ext>".
func outputName(req Request, suffix, ext string) string {
	return baseName(req) + "_" + suffix + ext
}

func singleInput(req Request) (string, error) {
	if len(req.Inputs) == 0 || req.Inputs[0] == "" {
		return "", ErrNoInput
	}
	return req.Inputs[0], nil
}
