package upload

import (
	"context"
	"errors"
	"sync"

	"github.com/devsapp/ripeness-uploader/pkg/client"
	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/label"
	"github.com/devsapp/ripeness-uploader/pkg/preview"
	"github.com/devsapp/ripeness-uploader/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrBusy         = errors.New("upload already in progress")
	ErrClosed       = errors.New("controller closed")
	ErrUnknownModel = errors.New("unknown model")
)

// Predictor send the file to the resolved endpoint
type Predictor interface {
	Predict(ctx context.Context, endPoint string, file *client.File) (*client.Prediction, error)
}

// PreviewStore create and release preview references
type PreviewStore interface {
	Create(name string, data []byte) (*preview.Ref, error)
	Revoke(id string)
}

// Attempt one triggered upload
type Attempt struct {
	ID         string  `json:"id"`
	Session    string  `json:"session"`
	FileName   string  `json:"fileName"`
	Model      string  `json:"model"`
	Endpoint   string  `json:"endpoint,omitempty"`
	Outcome    string  `json:"outcome"`
	RawLabel   string  `json:"rawLabel,omitempty"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
	CreateTime int64   `json:"createTime"`
	FinishTime int64   `json:"finishTime"`

	settled bool
}

// Observer get notified of upload attempts, must not block
type Observer interface {
	Triggered(attempt *Attempt, file *client.File)
	Settled(attempt *Attempt)
}

type Option func(c *Controller)

func WithModel(model string) Option {
	return func(c *Controller) {
		c.state.Model = model
	}
}

func WithSession(session string) Option {
	return func(c *Controller) {
		c.session = session
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, observer)
	}
}

// Controller owns the upload state of one user
type Controller struct {
	lock      sync.Mutex
	state     State
	file      *client.File
	previewId string
	// generation bump on every selection, a response of an older generation is stale
	generation uint64
	closed     bool

	session   string
	predictor Predictor
	resolver  client.Resolver
	previews  PreviewStore
	observers []Observer
}

func NewController(predictor Predictor, resolver client.Resolver, previews PreviewStore,
	opts ...Option) *Controller {
	c := &Controller{
		state:     NewState(config.ModelOptimized),
		predictor: predictor,
		resolver:  resolver,
		previews:  previews,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State snapshot of current state
func (c *Controller) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := c.state
	if s.Result != nil {
		result := *s.Result
		s.Result = &result
	}
	return s
}

// Select replace the selected file, nil or empty file is rejected
func (c *Controller) Select(file *client.File) (State, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return c.snapshot(), ErrClosed
	}
	c.generation++
	c.releasePreview()
	if file == nil || len(file.Data) == 0 {
		c.file = nil
		c.state = Reduce(c.state, FileRejected{})
		return c.snapshot(), nil
	}
	ref, err := c.previews.Create(file.Name, file.Data)
	if err != nil {
		c.file = nil
		c.state = Reduce(c.state, FileRejected{})
		return c.snapshot(), nil
	}
	c.file = file
	c.previewId = ref.ID
	c.state = Reduce(c.state, FilePicked{Name: file.Name, PreviewURL: ref.URL})
	return c.snapshot(), nil
}

// SetModel switch model, take effect on the next upload
func (c *Controller) SetModel(model string) (State, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !config.IsModel(model) {
		return c.snapshot(), ErrUnknownModel
	}
	c.state = Reduce(c.state, ModelSelected{Model: model})
	return c.snapshot(), nil
}

// Upload send the selected file and wait until the request settles.
// Without a file no request is sent and the state carries the validation message.
func (c *Controller) Upload(ctx context.Context) (State, error) {
	c.lock.Lock()
	if c.closed {
		defer c.lock.Unlock()
		return c.snapshot(), ErrClosed
	}
	if c.state.Loading {
		defer c.lock.Unlock()
		return c.snapshot(), ErrBusy
	}
	c.state = Reduce(c.state, UploadRequested{})
	if !c.state.Loading {
		defer c.lock.Unlock()
		return c.snapshot(), nil
	}
	attempt := &Attempt{
		ID:         uuid.NewString(),
		Session:    c.session,
		FileName:   c.file.Name,
		Model:      c.state.Model,
		CreateTime: utils.TimestampS(),
	}
	file := c.file
	generation := c.generation
	c.lock.Unlock()

	// always settle, the trigger must be re-enabled on every path
	var ev Event = UploadFailed{Message: config.MSG_UPLOAD_ERROR}
	defer func() {
		c.settle(generation, attempt, ev)
	}()

	// every settled attempt was triggered first
	for _, o := range c.observers {
		o.Triggered(attempt, file)
	}
	endPoint, err := c.resolver.Resolve(attempt.Model)
	if err != nil {
		logrus.WithFields(logrus.Fields{"attemptId": attempt.ID}).Errorf("resolve endpoint err=%s", err.Error())
		return c.settle(generation, attempt, ev), nil
	}
	attempt.Endpoint = endPoint
	prediction, err := c.predictor.Predict(ctx, endPoint, file)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"attemptId": attempt.ID,
			"endpoint":  endPoint,
		}).Warnf("predict err=%s", err.Error())
		ev = UploadFailed{Message: ErrorMessage(err)}
	} else {
		ev = PredictionReceived{RawLabel: prediction.Label, Confidence: prediction.Confidence}
	}
	return c.settle(generation, attempt, ev), nil
}

// settle apply the outcome once, later calls only return the state
func (c *Controller) settle(generation uint64, attempt *Attempt, ev Event) State {
	c.lock.Lock()
	if attempt.settled {
		defer c.lock.Unlock()
		return c.snapshot()
	}
	attempt.settled = true
	attempt.FinishTime = utils.TimestampS()
	switch e := ev.(type) {
	case PredictionReceived:
		attempt.Outcome = config.OUTCOME_SUCCESS
		attempt.RawLabel = e.RawLabel
		attempt.Label = label.Translate(e.RawLabel)
		attempt.Confidence = e.Confidence
	case UploadFailed:
		attempt.Outcome = config.OUTCOME_FAILURE
		attempt.Error = e.Message
	}
	if generation != c.generation {
		attempt.Outcome = config.OUTCOME_STALE
		ev = ResponseDiscarded{}
	}
	c.state = Reduce(c.state, ev)
	s := c.snapshot()
	c.lock.Unlock()

	for _, o := range c.observers {
		o.Settled(attempt)
	}
	return s
}

// Close release the preview, the controller can not be used anymore
func (c *Controller) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.releasePreview()
	c.file = nil
}

func (c *Controller) releasePreview() {
	if c.previewId != "" {
		c.previews.Revoke(c.previewId)
		c.previewId = ""
	}
}

// ErrorMessage user facing message of a predict error
func ErrorMessage(err error) string {
	if errors.Is(err, client.ErrNoPrediction) {
		return config.MSG_NO_PREDICTION
	}
	var se *client.ServerError
	if errors.As(err, &se) {
		if se.Message == "" {
			return config.MSG_SERVER_PREFIX + config.MSG_UNKNOWN_ERROR
		}
		return config.MSG_SERVER_PREFIX + se.Message
	}
	return config.MSG_UPLOAD_ERROR
}
