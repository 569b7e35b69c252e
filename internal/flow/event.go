package flow

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/m3rciful/pdfbot/internal/ops"
	"github.com/m3rciful/pdfbot/internal/staging"
)

// EventKind is the kind of inbound update.
type EventKind int

const (
	EventButton EventKind = iota
	EventDocument
	EventPhoto
	EventText
)

func (k EventKind) String() string {
	switch k {
	case EventButton:
		return "button"
	case EventDocument:
		return "document"
	case EventPhoto:
		return "photo"
	case EventText:
		return "text"
	}
	return "unknown"
}

// Event is one inbound update, already stripped of transport details.
type Event struct {
	Kind   EventKind
	UserID int64
	ChatID int64

	Command Command
	Payload string

	Text string

	Upload *staging.Upload
}

// Input is the declared type of an upload.
type Input int

const (
	InputOther Input = iota
	InputPDF
	InputImage
	InputOffice
)

func (i Input) String() string {
	switch i {
	case InputPDF:
		return "pdf"
	case InputImage:
		return "image"
	case InputOffice:
		return "office"
	}
	return "other"
}

var imageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".tif": true, ".tiff": true,
	".gif": true, ".bmp": true,
}

// Classify reads the declared type of an upload from its MIME type and name.
func Classify(kind EventKind, up *staging.Upload) Input {
	if up == nil {
		return InputOther
	}
	if kind == EventPhoto {
		return InputImage
	}
	mime := strings.ToLower(up.MIME)
	ext := strings.ToLower(filepath.Ext(up.FileName))
	switch {
	case mime == "application/pdf" || ext == ".pdf":
		return InputPDF
	case strings.HasPrefix(mime, "image/") || imageExt[ext]:
		return InputImage
	case ops.IsOffice(up.FileName):
		return InputOffice
	}
	return InputOther
}

func (a Accept) admits(in Input) bool {
	switch a {
	case AcceptAny:
		return true
	case AcceptPDF:
		return in == InputPDF
	case AcceptImage:
		return in == InputImage
	case AcceptOffice:
		return in == InputOffice
	}
	return false
}

// officeContainers are the detected types an office upload may resolve to,
// directly or through a parent type.
var officeContainers = []string{"application/zip", "application/x-ole-storage", "text/plain"}

// sniff checks the staged content against the declared type.
func sniff(path string, in Input) bool {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	switch in {
	case InputPDF:
		return m.Is("application/pdf")
	case InputImage:
		return strings.HasPrefix(m.String(), "image/")
	case InputOffice:
		for ; m != nil; m = m.Parent() {
			for _, c := range officeContainers {
				if m.Is(c) {
					return true
				}
			}
		}
		return false
	}
	return true
}
