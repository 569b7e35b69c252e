// Package keyboards renders flow menus as inline keyboards. Every button's
// unique key is the command it triggers.
package keyboards

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pdfbot/core/telegram/keyboard"
	"github.com/m3rciful/pdfbot/internal/flow"
)

// Labels resolves button captions.
type Labels interface {
	Lookup(lang, key string, args map[string]any) string
}

// Language buttons carry the language code as payload.
var languages = []keyboard.InlineBtn{
	{Text: "🇬🇧 English", Unique: string(flow.CmdLang), Data: "en"},
	{Text: "🇮🇷 فارسی", Unique: string(flow.CmdLang), Data: "fa"},
}

type item struct {
	cmd   flow.Command
	label string
}

var layouts = map[flow.Menu][][]item{
	flow.MenuMain: {
		{{flow.CmdMenuOrganize, "organize_pdf"}},
		{{flow.CmdMenuOptimize, "optimize_pdf"}},
		{{flow.CmdMenuConvert, "convert_pdf"}},
		{{flow.CmdMenuEdit, "edit_pdf"}},
		{{flow.CmdMenuSecurity, "pdf_security"}},
	},
	flow.MenuOrganize: {
		{{flow.CmdMerge, "merge_pdfs"}},
		{{flow.CmdSplit, "split_pdf"}},
		{{flow.CmdExtractPages, "extract_pages"}},
		{{flow.CmdRemovePages, "remove_pages"}},
		{{flow.CmdExtractImages, "extract_images"}, {flow.CmdExtractText, "extract_text"}},
		{{flow.CmdBack, "back"}},
	},
	flow.MenuOptimize: {
		{{flow.CmdCompress, "compress_pdf"}},
		{{flow.CmdRepair, "repair_pdf"}},
		{{flow.CmdOCR, "ocr_pdf"}},
		{{flow.CmdBack, "back"}},
	},
	flow.MenuConvert: {
		{{flow.CmdImagesToPDF, "jpg_to_pdf"}, {flow.CmdPDFToJPG, "pdf_to_jpg"}},
		{{flow.CmdWordToPDF, "word_to_pdf"}, {flow.CmdPDFToWord, "pdf_to_word"}},
		{{flow.CmdExcelToPDF, "excel_to_pdf"}, {flow.CmdPowerpointToPDF, "powerpoint_to_pdf"}},
		{{flow.CmdBack, "back"}},
	},
	flow.MenuEdit: {
		{{flow.CmdRotate, "rotate_pdf"}},
		{{flow.CmdPageNumbers, "add_page_numbers"}},
		{{flow.CmdWatermark, "add_watermark"}},
		{{flow.CmdCrop, "crop_pdf"}},
		{{flow.CmdBack, "back"}},
	},
	flow.MenuSecurity: {
		{{flow.CmdUnlock, "unlock_pdf"}, {flow.CmdProtect, "protect_pdf"}},
		{{flow.CmdSign, "sign_pdf"}},
		{{flow.CmdBack, "back"}},
	},
	flow.MenuDone: {
		{{flow.CmdImagesDone, "done"}},
		{{flow.CmdCancel, "cancel"}},
	},
	flow.MenuMerge: {
		{{flow.CmdMergeNow, "merge_now"}},
		{{flow.CmdCancel, "cancel"}},
	},
	flow.MenuPending: {
		{{flow.CmdSubscribe, "notify_me"}, {flow.CmdBack, "no_thanks"}},
	},
}

// Build returns the markup for r, or nil when the reply has no keyboard.
func Build(labels Labels, r flow.Reply) *tele.ReplyMarkup {
	switch r.Menu {
	case flow.MenuNone:
		return nil
	case flow.MenuLanguage:
		return keyboard.InlineButtonsNPerRow(languages, 2)
	case flow.MenuCancel:
		return keyboard.SingleCancelMarkup(string(flow.CmdCancel), "", labels.Lookup(r.Lang, "cancel", nil))
	}
	layout, ok := layouts[r.Menu]
	if !ok {
		return nil
	}
	args := map[string]any{"count": r.Count}
	rows := make([][]keyboard.InlineBtn, 0, len(layout))
	for _, row := range layout {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, it := range row {
			btns = append(btns, keyboard.InlineBtn{
				Text:   labels.Lookup(r.Lang, it.label, args),
				Unique: string(it.cmd),
			})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...)
}
