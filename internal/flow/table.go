package flow

import (
	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/ops"
)

// Channel is the kind of input a transition consumes.
type Channel int

const (
	ChannelUpload Channel = iota
	ChannelText
)

// Accept is the input a transition validates before acting.
type Accept int

const (
	AcceptAny Accept = iota
	AcceptPDF
	AcceptImage
	AcceptOffice
	AcceptPages
	AcceptAngle
	AcceptLevel
	AcceptPassword
)

// Action is what a transition does with accepted input.
type Action int

const (
	// ActionAppend adds the upload to the session's files.
	ActionAppend Action = iota
	// ActionHold stores the upload as the target param and waits for more input.
	ActionHold
	// ActionRun hands the session to an operation and clears it.
	ActionRun
	// ActionConvert picks a one-shot conversion from the upload's type.
	ActionConvert
)

// Transition is one row of the state table.
type Transition struct {
	From   state.State
	On     Channel
	Accept Accept
	Action Action
	// Param receives the validated text of a text transition.
	Param string
	Next  state.State
	Op    ops.Op
	// Prompt is shown after a hold, and again after invalid input.
	Prompt string
}

// Start describes the state an operation button enters.
type Start struct {
	State  state.State
	Prompt string
}

// Terminal describes a button that finishes an accumulating flow.
type Terminal struct {
	From state.State
	Op   ops.Op
	// Min is the number of staged files required.
	Min          int
	Insufficient string
}

var starts = map[Command]Start{
	CmdMerge:           {StateMerging, "send_pdfs"},
	CmdImagesToPDF:     {StateCollectingImages, "send_images"},
	CmdSplit:           {StateSplitting, "send_pdf_for_split"},
	CmdExtractPages:    {StateExtractingPages, "send_pdf_for_extract_pages"},
	CmdRemovePages:     {StateRemovingPages, "send_pdf_for_remove_pages"},
	CmdExtractImages:   {StateExtractingImages, "send_pdf_for_extract_images"},
	CmdExtractText:     {StateExtractingText, "send_pdf_for_extract_text"},
	CmdCompress:        {StateCompressing, "send_pdf_for_compress"},
	CmdRepair:          {StateRepairing, "send_pdf_for_repair"},
	CmdWordToPDF:       {StateWordToPDF, "send_word"},
	CmdExcelToPDF:      {StateExcelToPDF, "send_excel"},
	CmdPowerpointToPDF: {StatePowerpointToPDF, "send_powerpoint"},
	CmdPDFToJPG:        {StatePDFToJPG, "send_pdf_for_jpg"},
	CmdRotate:          {StateRotating, "send_pdf_for_rotate"},
	CmdPageNumbers:     {StateAddingPageNumbers, "send_pdf_for_page_numbers"},
	CmdWatermark:       {StateAddingWatermark, "send_pdf_for_watermark"},
	CmdUnlock:          {StateUnlocking, "send_pdf_for_unlock"},
	CmdProtect:         {StateProtecting, "send_pdf_for_protect"},
}

var terminals = map[Command]Terminal{
	CmdMergeNow:   {From: StateMerging, Op: ops.OpMerge, Min: 2, Insufficient: "no_pdfs"},
	CmdImagesDone: {From: StateCollectingImages, Op: ops.OpImagesToPDF, Min: 1, Insufficient: "no_images"},
}

var transitions = []Transition{
	{From: StateMerging, On: ChannelUpload, Accept: AcceptPDF, Action: ActionAppend, Next: StateMerging},
	{From: StateCollectingImages, On: ChannelUpload, Accept: AcceptImage, Action: ActionAppend, Next: StateCollectingImages},

	{From: StateSplitting, On: ChannelUpload, Accept: AcceptPDF, Action: ActionHold, Param: ParamTarget, Next: StateSplittingWaitSpec, Prompt: "enter_split_mode"},
	{From: StateSplittingWaitSpec, On: ChannelText, Accept: AcceptPages, Action: ActionRun, Param: ops.ParamPages, Next: state.StateIdle, Op: ops.OpSplit, Prompt: "enter_split_mode"},

	{From: StateExtractingPages, On: ChannelUpload, Accept: AcceptPDF, Action: ActionHold, Param: ParamTarget, Next: StateExtractingPagesWaitSpec, Prompt: "enter_pages"},
	{From: StateExtractingPagesWaitSpec, On: ChannelText, Accept: AcceptPages, Action: ActionRun, Param: ops.ParamPages, Next: state.StateIdle, Op: ops.OpExtractPages, Prompt: "enter_pages"},

	{From: StateRemovingPages, On: ChannelUpload, Accept: AcceptPDF, Action: ActionHold, Param: ParamTarget, Next: StateRemovingPagesWaitSpec, Prompt: "enter_pages"},
	{From: StateRemovingPagesWaitSpec, On: ChannelText, Accept: AcceptPages, Action: ActionRun, Param: ops.ParamPages, Next: state.StateIdle, Op: ops.OpRemovePages, Prompt: "enter_pages"},

	{From: StateExtractingImages, On: ChannelUpload, Accept: AcceptPDF, Action: ActionRun, Next: state.StateIdle, Op: ops.OpExtractImages},
	{From: StateExtractingText, On: ChannelUpload, Accept: AcceptPDF, Action: ActionRun, Next: state.StateIdle, Op: ops.OpExtractText},

	{From: StateCompressing, On: ChannelUpload, Accept: AcceptPDF, Action: ActionHold, Param: ParamTarget, Next: StateCompressingWaitLevel, Prompt: "enter_compression_level"},
	{From: StateCompressingWaitLevel, On: ChannelText, Accept: AcceptLevel, Action: ActionRun, Param: ops.ParamLevel, Next: state.StateIdle, Op: ops.OpCompress, Prompt: "enter_compression_level"},

	{From: StateRepairing, On: ChannelUpload, Accept: AcceptPDF, Action: ActionRun, Next: state.StateIdle, Op: ops.OpRepair},

	{From: StateWordToPDF, On: ChannelUpload, Accept: AcceptOffice, Action: ActionRun, Next: state.StateIdle, Op: ops.OpConvertDocument},
	{From: StateExcelToPDF, On: ChannelUpload, Accept: AcceptOffice, Action: ActionRun, Next: state.StateIdle, Op: ops.OpConvertDocument},
	{From: StatePowerpointToPDF, On: ChannelUpload, Accept: AcceptOffice, Action: ActionRun, Next: state.StateIdle, Op: ops.OpConvertDocument},

	{From: StatePDFToJPG, On: ChannelUpload, Accept: AcceptPDF, Action: ActionRun, Next: state.StateIdle, Op: ops.OpPDFToImages},

	{From: StateRotating, On: ChannelUpload, Accept: AcceptPDF, Action: ActionHold, Param: ParamTarget, Next: StateRotatingWaitAngle, Prompt: "enter_rotation"},
	{From: StateRotatingWaitAngle, On: ChannelText, Accept: AcceptAngle, Action: ActionRun, Param: ops.ParamAngle, Next: state.StateIdle, Op: ops.OpRotate, Prompt: "enter_rotation"},

	{From: StateAddingPageNumbers, On: ChannelUpload, Accept: AcceptPDF, Action: ActionRun, Next: state.StateIdle, Op: ops.OpPageNumbers},

	{From: StateAddingWatermark, On: ChannelUpload, Accept: AcceptPDF, Action: ActionHold, Param: ParamTarget, Next: StateAddingWatermarkWaitImg, Prompt: "send_watermark_image"},
	{From: StateAddingWatermarkWaitImg, On: ChannelUpload, Accept: AcceptImage, Action: ActionRun, Next: state.StateIdle, Op: ops.OpWatermark, Prompt: "send_watermark_image"},

	{From: StateUnlocking, On: ChannelUpload, Accept: AcceptPDF, Action: ActionHold, Param: ParamTarget, Next: StateUnlockingWaitPassword, Prompt: "enter_password"},
	{From: StateUnlockingWaitPassword, On: ChannelText, Accept: AcceptPassword, Action: ActionRun, Param: ops.ParamPassword, Next: state.StateIdle, Op: ops.OpUnlock, Prompt: "enter_password"},

	{From: StateProtecting, On: ChannelUpload, Accept: AcceptPDF, Action: ActionHold, Param: ParamTarget, Next: StateProtectingWaitPassword, Prompt: "enter_new_password"},
	{From: StateProtectingWaitPassword, On: ChannelText, Accept: AcceptPassword, Action: ActionRun, Param: ops.ParamPassword, Next: state.StateIdle, Op: ops.OpProtect, Prompt: "enter_new_password"},

	{From: state.StateIdle, On: ChannelUpload, Accept: AcceptAny, Action: ActionConvert, Next: state.StateIdle},
}

type tableKey struct {
	from state.State
	on   Channel
}

var (
	transitionIndex = buildIndex(transitions)
	promptIndex     = buildPrompts()
)

func buildIndex(rows []Transition) map[tableKey]Transition {
	idx := make(map[tableKey]Transition, len(rows))
	for _, t := range rows {
		k := tableKey{t.From, t.On}
		if _, dup := idx[k]; dup {
			panic("flow: duplicate transition for " + string(t.From))
		}
		idx[k] = t
	}
	return idx
}

func buildPrompts() map[state.State]string {
	out := make(map[state.State]string)
	for _, s := range starts {
		out[s.State] = s.Prompt
	}
	for _, t := range transitions {
		if t.Prompt != "" {
			out[t.Next] = t.Prompt
			if t.Action == ActionRun {
				out[t.From] = t.Prompt
			}
		}
	}
	delete(out, state.StateIdle)
	return out
}

// Lookup finds the transition for input arriving on ch while in st.
func Lookup(st state.State, ch Channel) (Transition, bool) {
	if st == "" {
		st = state.StateIdle
	}
	t, ok := transitionIndex[tableKey{st, ch}]
	return t, ok
}

// StartFor returns the entry state of an operation button.
func StartFor(c Command) (Start, bool) {
	s, ok := starts[c]
	return s, ok
}

// TerminalFor returns the finishing rule of a terminal button.
func TerminalFor(c Command) (Terminal, bool) {
	t, ok := terminals[c]
	return t, ok
}

// PromptFor returns the text key that asks for the input st is waiting for.
func PromptFor(st state.State) string {
	return promptIndex[st]
}

// Transitions returns a copy of the table.
func Transitions() []Transition {
	return append([]Transition(nil), transitions...)
}
