package outputdevice

import (
	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/logging"
)

// User-visible notices
const (
	MsgUploadSuccess   = "Upload Success"
	MsgPrintingStarted = "<b>Printing Started</b>"
	MsgInvalidIP       = "Invalid IP"
)

// Notifier shows a transient status message to the user. ShowMessage must
// not block.
type Notifier interface {
	ShowMessage(text string)
}

// LogNotifier writes notices to the log
type LogNotifier struct{}

// ShowMessage logs text at info level
func (LogNotifier) ShowMessage(text string) {
	logging.Info("Notice", zap.String("message", text))
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(text string)

// ShowMessage calls f(text)
func (f NotifierFunc) ShowMessage(text string) {
	f(text)
}
