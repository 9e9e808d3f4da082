package upload

import (
	"fmt"
	"strconv"

	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/label"
)

type Phase int

const (
	Idle Phase = iota
	FileSelected
	Uploading
	Success
	Failure
)

var phaseNames = map[Phase]string{
	Idle:         "idle",
	FileSelected: "fileSelected",
	Uploading:    "uploading",
	Success:      "success",
	Failure:      "failure",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Result last successful prediction
type Result struct {
	RawLabel       string  `json:"rawLabel"`
	Label          string  `json:"label"`
	Confidence     float64 `json:"confidence"`
	ConfidenceText string  `json:"confidenceText"`
}

// State view state of one controller
type State struct {
	Phase      Phase   `json:"phase"`
	HasFile    bool    `json:"hasFile"`
	FileName   string  `json:"fileName,omitempty"`
	PreviewURL string  `json:"previewUrl,omitempty"`
	Result     *Result `json:"result,omitempty"`
	Error      string  `json:"error,omitempty"`
	// Loading a request is in flight, the upload trigger is disabled
	Loading bool   `json:"loading"`
	Model   string `json:"model"`
}

// TriggerDisabled upload control disabled while loading
func (s State) TriggerDisabled() bool {
	return s.Loading
}

// Event input of Reduce
type Event interface {
	event()
}

// FilePicked a valid file was selected
type FilePicked struct {
	Name       string
	PreviewURL string
}

// FileRejected the selected item is not a usable payload
type FileRejected struct{}

// UploadRequested the user triggered upload
type UploadRequested struct{}

// ModelSelected the user switched backend model
type ModelSelected struct {
	Model string
}

// PredictionReceived request settled with a prediction
type PredictionReceived struct {
	RawLabel   string
	Confidence float64
}

// UploadFailed request settled with an error, Message is user facing
type UploadFailed struct {
	Message string
}

// ResponseDiscarded request settled for a superseded selection
type ResponseDiscarded struct{}

func (FilePicked) event()         {}
func (FileRejected) event()       {}
func (UploadRequested) event()    {}
func (ModelSelected) event()      {}
func (PredictionReceived) event() {}
func (UploadFailed) event()       {}
func (ResponseDiscarded) event()  {}

// NewState initial state
func NewState(model string) State {
	return State{Phase: Idle, Model: model}
}

// FormatConfidence two decimals, no unit or scale normalization
func FormatConfidence(confidence float64) string {
	return strconv.FormatFloat(confidence, 'f', 2, 64)
}

// Reduce pure state transition
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case FilePicked:
		s.Phase = FileSelected
		s.HasFile = true
		s.FileName = ev.Name
		s.PreviewURL = ev.PreviewURL
		s.Result = nil
		s.Error = ""
	case FileRejected:
		s.Phase = FileSelected
		s.HasFile = false
		s.FileName = ""
		s.PreviewURL = ""
		s.Result = nil
		s.Error = config.MSG_INVALID_FILE
	case UploadRequested:
		if s.Loading {
			return s
		}
		if !s.HasFile {
			s.Error = config.MSG_NO_FILE
			return s
		}
		s.Phase = Uploading
		s.Loading = true
		s.Result = nil
		s.Error = ""
	case ModelSelected:
		s.Model = ev.Model
	case PredictionReceived:
		s.Phase = Success
		s.Loading = false
		s.Error = ""
		s.Result = &Result{
			RawLabel:       ev.RawLabel,
			Label:          label.Translate(ev.RawLabel),
			Confidence:     ev.Confidence,
			ConfidenceText: FormatConfidence(ev.Confidence),
		}
	case UploadFailed:
		s.Phase = Failure
		s.Loading = false
		s.Result = nil
		s.Error = ev.Message
	case ResponseDiscarded:
		s.Loading = false
	}
	return s
}
