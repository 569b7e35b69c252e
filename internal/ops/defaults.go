package ops

// Options selects external binaries and rendering quality for Defaults.
type Options struct {
	GhostscriptBin string
	LibreOfficeBin string
	DPI            float64
	JPEGQuality    int
	MaxRenderPages int
}

// Defaults registers every built-in adapter.
func Defaults(opts Options) *Registry {
	if opts.GhostscriptBin == "" {
		opts.GhostscriptBin = "gs"
	}
	if opts.LibreOfficeBin == "" {
		opts.LibreOfficeBin = "soffice"
	}
	if opts.DPI <= 0 {
		opts.DPI = 150
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 90
	}
	if opts.MaxRenderPages <= 0 {
		opts.MaxRenderPages = 100
	}

	var p PDFCPU
	render := Renderer{DPI: opts.DPI, Quality: opts.JPEGQuality, MaxPages: opts.MaxRenderPages}

	r := NewRegistry()
	r.Register(OpMerge, AdapterFunc(p.Merge))
	r.Register(OpSplit, AdapterFunc(p.Split))
	r.Register(OpExtractPages, AdapterFunc(p.ExtractPages))
	r.Register(OpRemovePages, AdapterFunc(p.RemovePages))
	r.Register(OpExtractImages, AdapterFunc(p.ExtractImages))
	r.Register(OpRepair, AdapterFunc(p.Repair))
	r.Register(OpImagesToPDF, AdapterFunc(p.ImagesToPDF))
	r.Register(OpRotate, AdapterFunc(p.Rotate))
	r.Register(OpPageNumbers, AdapterFunc(p.PageNumbers))
	r.Register(OpWatermark, AdapterFunc(p.Watermark))
	r.Register(OpUnlock, AdapterFunc(p.Unlock))
	r.Register(OpProtect, AdapterFunc(p.Protect))
	r.Register(OpExtractText, AdapterFunc(render.ExtractText))
	r.Register(OpPDFToImages, AdapterFunc(render.ToImages))
	r.Register(OpCompress, Compressor{
		Ghostscript: Tool{Name: "ghostscript", Bin: opts.GhostscriptBin},
		Fallback:    p,
	})
	r.Register(OpConvertDocument, Office{
		LibreOffice: Tool{Name: "libreoffice", Bin: opts.LibreOfficeBin},
	})
	return r
}
