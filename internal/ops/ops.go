// Package ops runs PDF operations behind one contract: an Adapter takes
// staged input paths plus scalar parameters and produces a single artifact.
// Adapters never see conversation state.
package ops

import (
	"context"
	"fmt"
	"os"
	"sort"
)

// Op names an operation.
type Op string

const (
	OpMerge           Op = "merge"
	OpSplit           Op = "split"
	OpExtractPages    Op = "extract_pages"
	OpRemovePages     Op = "remove_pages"
	OpExtractImages   Op = "extract_images"
	OpExtractText     Op = "extract_text"
	OpCompress        Op = "compress"
	OpRepair          Op = "repair"
	OpImagesToPDF     Op = "images_to_pdf"
	OpConvertDocument Op = "convert_document"
	OpPDFToImages     Op = "pdf_to_images"
	OpRotate          Op = "rotate"
	OpPageNumbers     Op = "page_numbers"
	OpWatermark       Op = "watermark"
	OpUnlock          Op = "unlock"
	OpProtect         Op = "protect"
)

// Parameter keys understood by adapters.
const (
	ParamPages    = "pages"
	ParamAngle    = "angle"
	ParamLevel    = "level"
	ParamPassword = "password"
	ParamFileName = "file_name"
)

// Request is the input of a single adapter call.
type Request struct {
	Inputs  []string
	Params  map[string]string
	WorkDir string
}

// Param returns a parameter or the empty string.
func (r Request) Param(key string) string {
	if r.Params == nil {
		return ""
	}
	return r.Params[key]
}

// Artifact describes the produced file.
type Artifact struct {
	Path string
	// Name is the file name shown to the user.
	Name  string
	Pages int
	Size  int64
	// OriginalSize is set by operations that report savings.
	OriginalSize int64
}

// Adapter runs one operation.
type Adapter interface {
	Run(ctx context.Context, req Request) (Artifact, error)
}

// AdapterFunc lets plain functions act as adapters.
type AdapterFunc func(ctx context.Context, req Request) (Artifact, error)

func (f AdapterFunc) Run(ctx context.Context, req Request) (Artifact, error) {
	return f(ctx, req)
}

// Registry maps operations to adapters.
type Registry struct {
	adapters map[Op]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Op]Adapter)}
}

// Register binds op to a. A later call replaces the earlier adapter.
func (r *Registry) Register(op Op, a Adapter) {
	r.adapters[op] = a
}

// Run executes op and wraps every failure in *Error.
func (r *Registry) Run(ctx context.Context, op Op, req Request) (Artifact, error) {
	a, ok := r.adapters[op]
	if !ok {
		return Artifact{}, Wrap(op, fmt.Errorf("%w: no adapter registered", ErrToolUnavailable))
	}
	art, err := a.Run(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return Artifact{}, Wrap(op, err)
	}
	if art.Size == 0 && art.Path != "" {
		if info, statErr := os.Stat(art.Path); statErr == nil {
			art.Size = info.Size()
		}
	}
	return art, nil
}

// Ops lists registered operations in name order.
func (r *Registry) Ops() []Op {
	out := make([]Op, 0, len(r.adapters))
	for op := range r.adapters {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
