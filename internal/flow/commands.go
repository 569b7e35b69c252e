package flow

// Command is a button or slash command the dispatcher understands.
type Command string

const (
	CmdStart Command = "start"
	CmdHelp  Command = "help"
	CmdLang  Command = "lang"

	CmdMenuOrganize Command = "menu_organize"
	CmdMenuOptimize Command = "menu_optimize"
	CmdMenuConvert  Command = "menu_convert"
	CmdMenuEdit     Command = "menu_edit"
	CmdMenuSecurity Command = "menu_security"
	CmdBack         Command = "back"

	CmdMerge           Command = "merge"
	CmdSplit           Command = "split"
	CmdExtractPages    Command = "extract_pages"
	CmdRemovePages     Command = "remove_pages"
	CmdExtractImages   Command = "extract_images"
	CmdExtractText     Command = "extract_text"
	CmdCompress        Command = "compress"
	CmdRepair          Command = "repair"
	CmdImagesToPDF     Command = "images_to_pdf"
	CmdWordToPDF       Command = "word_to_pdf"
	CmdExcelToPDF      Command = "excel_to_pdf"
	CmdPowerpointToPDF Command = "powerpoint_to_pdf"
	CmdPDFToJPG        Command = "pdf_to_jpg"
	CmdRotate          Command = "rotate"
	CmdPageNumbers     Command = "page_numbers"
	CmdWatermark       Command = "watermark"
	CmdUnlock          Command = "unlock"
	CmdProtect         Command = "protect"

	CmdMergeNow   Command = "merge_now"
	CmdImagesDone Command = "images_done"

	CmdCancel      Command = "cancel"
	CmdSubscribe   Command = "subscribe"
	CmdUnsubscribe Command = "unsubscribe"

	CmdOCR       Command = "ocr"
	CmdPDFToWord Command = "pdf_to_word"
	CmdCrop      Command = "crop"
	CmdSign      Command = "sign"
)

// CommandKind groups commands by how the dispatcher treats them.
type CommandKind int

const (
	KindUnknown CommandKind = iota
	KindInfo
	KindLanguage
	KindNavigation
	KindStart
	KindTerminal
	KindCancel
	KindSubscription
	KindPending
)

var commandKinds = map[Command]CommandKind{
	CmdStart: KindInfo,
	CmdHelp:  KindInfo,
	CmdLang:  KindLanguage,

	CmdMenuOrganize: KindNavigation,
	CmdMenuOptimize: KindNavigation,
	CmdMenuConvert:  KindNavigation,
	CmdMenuEdit:     KindNavigation,
	CmdMenuSecurity: KindNavigation,
	CmdBack:         KindNavigation,

	CmdMerge:           KindStart,
	CmdSplit:           KindStart,
	CmdExtractPages:    KindStart,
	CmdRemovePages:     KindStart,
	CmdExtractImages:   KindStart,
	CmdExtractText:     KindStart,
	CmdCompress:        KindStart,
	CmdRepair:          KindStart,
	CmdImagesToPDF:     KindStart,
	CmdWordToPDF:       KindStart,
	CmdExcelToPDF:      KindStart,
	CmdPowerpointToPDF: KindStart,
	CmdPDFToJPG:        KindStart,
	CmdRotate:          KindStart,
	CmdPageNumbers:     KindStart,
	CmdWatermark:       KindStart,
	CmdUnlock:          KindStart,
	CmdProtect:         KindStart,

	CmdMergeNow:   KindTerminal,
	CmdImagesDone: KindTerminal,

	CmdCancel:      KindCancel,
	CmdSubscribe:   KindSubscription,
	CmdUnsubscribe: KindSubscription,

	CmdOCR:       KindPending,
	CmdPDFToWord: KindPending,
	CmdCrop:      KindPending,
	CmdSign:      KindPending,
}

// Older button payloads still found on messages sent before a redeploy.
var commandAliases = map[string]Command{
	"back_to_menu":           CmdBack,
	"do_merge":               CmdMergeNow,
	"create_pdf_from_images": CmdImagesDone,
	"jpg_to_pdf":             CmdImagesToPDF,
	"add_page_numbers":       CmdPageNumbers,
}

// Kind classifies c; unknown commands report KindUnknown.
func (c Command) Kind() CommandKind {
	return commandKinds[c]
}

// ParseCommand resolves a callback key or alias.
func ParseCommand(s string) (Command, bool) {
	if c := Command(s); c.Kind() != KindUnknown {
		return c, true
	}
	if c, ok := commandAliases[s]; ok {
		return c, true
	}
	return "", false
}

// Commands lists every command that can arrive from a button, in stable order.
func Commands() []Command {
	out := make([]Command, 0, len(commandKinds))
	for _, group := range [][]Command{
		{CmdLang},
		{CmdMenuOrganize, CmdMenuOptimize, CmdMenuConvert, CmdMenuEdit, CmdMenuSecurity, CmdBack},
		startOrder,
		{CmdMergeNow, CmdImagesDone, CmdCancel, CmdSubscribe, CmdUnsubscribe},
		{CmdOCR, CmdPDFToWord, CmdCrop, CmdSign},
	} {
		out = append(out, group...)
	}
	return out
}

var startOrder = []Command{
	CmdMerge, CmdSplit, CmdExtractPages, CmdRemovePages, CmdExtractImages, CmdExtractText,
	CmdCompress, CmdRepair, CmdImagesToPDF, CmdWordToPDF, CmdExcelToPDF, CmdPowerpointToPDF,
	CmdPDFToJPG, CmdRotate, CmdPageNumbers, CmdWatermark, CmdUnlock, CmdProtect,
}
