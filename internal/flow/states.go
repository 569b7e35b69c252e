package flow

import "github.com/m3rciful/pdfbot/core/telegram/state"

// Conversation states. Idle is state.StateIdle.
const (
	StateMerging                 state.State = "merging"
	StateCollectingImages        state.State = "collecting_images"
	StateSplitting               state.State = "splitting"
	StateSplittingWaitSpec       state.State = "splitting_wait_spec"
	StateExtractingPages         state.State = "extracting_pages"
	StateExtractingPagesWaitSpec state.State = "extracting_pages_wait_spec"
	StateRemovingPages           state.State = "removing_pages"
	StateRemovingPagesWaitSpec   state.State = "removing_pages_wait_spec"
	StateExtractingImages        state.State = "extracting_images"
	StateExtractingText          state.State = "extracting_text"
	StateCompressing             state.State = "compressing"
	StateCompressingWaitLevel    state.State = "compressing_wait_level"
	StateRepairing               state.State = "repairing"
	StateWordToPDF               state.State = "word_to_pdf"
	StateExcelToPDF              state.State = "excel_to_pdf"
	StatePowerpointToPDF         state.State = "powerpoint_to_pdf"
	StatePDFToJPG                state.State = "pdf_to_jpg"
	StateRotating                state.State = "rotating"
	StateRotatingWaitAngle       state.State = "rotating_wait_angle"
	StateAddingPageNumbers       state.State = "adding_page_numbers"
	StateAddingWatermark         state.State = "adding_watermark"
	StateAddingWatermarkWaitImg  state.State = "adding_watermark_wait_image"
	StateUnlocking               state.State = "unlocking"
	StateUnlockingWaitPassword   state.State = "unlocking_wait_password"
	StateProtecting              state.State = "protecting"
	StateProtectingWaitPassword  state.State = "protecting_wait_password"
)

// Session params.
const (
	ParamTarget     = "target"
	ParamTargetName = "target_name"
)
