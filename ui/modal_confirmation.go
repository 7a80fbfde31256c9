package ui

// ConfirmationState is a pending y/n question
type ConfirmationState struct {
	Active  bool
	Title   string
	Message string
}

// RenderConfirmationModal asks a y/n question over the whole screen
func RenderConfirmationModal(state ConfirmationState, width, height int) string {
	modalWidth := fitModalWidth(defaultModalWidth, width)
	return RenderThreeSectionModal(
		state.Title,
		centeredLines(state.Message, modalWidth),
		FormatFooter("y", "Yes", "n", "No"),
		ModalTypeWarning,
		modalWidth,
		width,
		height,
	)
}
