package upload

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/devsapp/ripeness-uploader/pkg/client"
	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/preview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	prediction *client.Prediction
	err        error
}

// fakePredictor answer with reply, or block on gate until released
type fakePredictor struct {
	lock      sync.Mutex
	calls     []string
	reply     reply
	gate      chan reply
	triggered chan struct{}
}

func (f *fakePredictor) Predict(ctx context.Context, endPoint string, file *client.File) (*client.Prediction, error) {
	f.lock.Lock()
	f.calls = append(f.calls, endPoint)
	gate := f.gate
	r := f.reply
	f.lock.Unlock()
	if f.triggered != nil {
		f.triggered <- struct{}{}
	}
	if gate != nil {
		r = <-gate
	}
	return r.prediction, r.err
}

func (f *fakePredictor) Calls() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.calls...)
}

type recorder struct {
	lock      sync.Mutex
	triggered []*Attempt
	settled   []*Attempt
}

func (r *recorder) Triggered(attempt *Attempt, file *client.File) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.triggered = append(r.triggered, attempt)
}

func (r *recorder) Settled(attempt *Attempt) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.settled = append(r.settled, attempt)
}

var tomato = &client.File{Name: "tomato.png", Data: []byte("\x89PNG\r\n\x1a\nfake")}

func newTestController(p Predictor, opts ...Option) (*Controller, *preview.Store) {
	previews := preview.NewStore(0)
	resolver := &client.TemplateResolver{Template: "http://localhost:5000/predict/{model}"}
	return NewController(p, resolver, previews, opts...), previews
}

func TestUploadWithoutFile(t *testing.T) {
	p := &fakePredictor{}
	c, _ := newTestController(p)
	s, err := c.Upload(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, config.MSG_NO_FILE, s.Error)
	assert.False(t, s.Loading)
	assert.Empty(t, p.Calls())
}

func TestUploadSuccess(t *testing.T) {
	p := &fakePredictor{reply: reply{prediction: &client.Prediction{Label: "green", Confidence: 0.87}}}
	rec := &recorder{}
	c, _ := newTestController(p, WithSession("s1"), WithObserver(rec))
	_, err := c.Select(tomato)
	require.NoError(t, err)

	s, err := c.Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Success, s.Phase)
	assert.False(t, s.Loading)
	assert.Equal(t, "Green", s.Result.Label)
	assert.Equal(t, "0.87", s.Result.ConfidenceText)
	assert.Empty(t, s.Error)
	assert.Equal(t, []string{"http://localhost:5000/predict/optimized"}, p.Calls())

	require.Len(t, rec.settled, 1)
	attempt := rec.settled[0]
	assert.Equal(t, config.OUTCOME_SUCCESS, attempt.Outcome)
	assert.Equal(t, "s1", attempt.Session)
	assert.Equal(t, "tomato.png", attempt.FileName)
	assert.Equal(t, "Green", attempt.Label)
	assert.Same(t, rec.triggered[0], attempt)
}

func TestUploadFailures(t *testing.T) {
	cases := []struct {
		err     error
		message string
	}{
		{client.ErrNoPrediction, config.MSG_NO_PREDICTION},
		{&client.ServerError{StatusCode: 400, Message: "bad image"}, "Error: bad image"},
		{&client.ServerError{StatusCode: 500}, "Error: Unknown error occurred."},
		{&client.TransportError{Err: errors.New("connection refused")}, "Error occurred while uploading image."},
	}
	for _, cs := range cases {
		p := &fakePredictor{reply: reply{err: cs.err}}
		c, _ := newTestController(p)
		_, err := c.Select(tomato)
		require.NoError(t, err)
		s, err := c.Upload(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Failure, s.Phase)
		assert.False(t, s.Loading)
		assert.Nil(t, s.Result)
		assert.Equal(t, cs.message, s.Error)
	}
}

func TestUploadClearsPreviousResult(t *testing.T) {
	p := &fakePredictor{reply: reply{prediction: &client.Prediction{Label: "green", Confidence: 0.5}}}
	c, _ := newTestController(p)
	c.Select(tomato)
	s, _ := c.Upload(context.Background())
	require.NotNil(t, s.Result)

	p.reply = reply{err: &client.ServerError{StatusCode: 400, Message: "bad image"}}
	s, _ = c.Upload(context.Background())
	assert.Nil(t, s.Result)
	assert.Equal(t, "Error: bad image", s.Error)

	p.reply = reply{prediction: &client.Prediction{Label: "fully_ripened", Confidence: 0.9}}
	s, _ = c.Upload(context.Background())
	assert.Empty(t, s.Error)
	assert.Equal(t, "Fully ripened", s.Result.Label)
}

func TestSelectResetsState(t *testing.T) {
	p := &fakePredictor{reply: reply{prediction: &client.Prediction{Label: "green", Confidence: 0.5}}}
	c, previews := newTestController(p)
	first, _ := c.Select(tomato)
	c.Upload(context.Background())

	s, err := c.Select(&client.File{Name: "b.png", Data: []byte("other")})
	require.NoError(t, err)
	assert.Equal(t, FileSelected, s.Phase)
	assert.Nil(t, s.Result)
	assert.Empty(t, s.Error)
	assert.NotEqual(t, first.PreviewURL, s.PreviewURL)
	// superseded preview released
	assert.Equal(t, 1, previews.Len())

	s, err = c.Select(&client.File{Name: "empty"})
	require.NoError(t, err)
	assert.Equal(t, config.MSG_INVALID_FILE, s.Error)
	assert.Empty(t, s.PreviewURL)
	assert.False(t, s.HasFile)
	assert.Equal(t, 0, previews.Len())

	s, _ = c.Select(nil)
	assert.Equal(t, config.MSG_INVALID_FILE, s.Error)
	s, _ = c.Upload(context.Background())
	assert.Equal(t, config.MSG_NO_FILE, s.Error)
}

func TestTriggerDisabledWhileInFlight(t *testing.T) {
	p := &fakePredictor{gate: make(chan reply), triggered: make(chan struct{}, 1)}
	c, _ := newTestController(p)
	c.Select(tomato)

	done := make(chan State)
	go func() {
		s, _ := c.Upload(context.Background())
		done <- s
	}()
	<-p.triggered

	s := c.State()
	assert.Equal(t, Uploading, s.Phase)
	assert.True(t, s.TriggerDisabled())
	_, err := c.Upload(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	p.gate <- reply{err: &client.TransportError{Err: errors.New("reset")}}
	s = <-done
	assert.False(t, s.TriggerDisabled())
	assert.Len(t, p.Calls(), 1)
}

func TestStaleResponseDiscarded(t *testing.T) {
	p := &fakePredictor{gate: make(chan reply), triggered: make(chan struct{}, 1)}
	rec := &recorder{}
	c, _ := newTestController(p, WithObserver(rec))
	c.Select(tomato)

	done := make(chan State)
	go func() {
		s, _ := c.Upload(context.Background())
		done <- s
	}()
	<-p.triggered

	s, err := c.Select(&client.File{Name: "b.png", Data: []byte("newer")})
	require.NoError(t, err)
	assert.True(t, s.Loading)
	_, err = c.Upload(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	p.gate <- reply{prediction: &client.Prediction{Label: "green", Confidence: 0.87}}
	s = <-done
	assert.False(t, s.Loading)
	assert.Equal(t, FileSelected, s.Phase)
	assert.Equal(t, "b.png", s.FileName)
	assert.Nil(t, s.Result)
	require.Len(t, rec.settled, 1)
	assert.Equal(t, config.OUTCOME_STALE, rec.settled[0].Outcome)
}

func TestModelSelectionAtTrigger(t *testing.T) {
	p := &fakePredictor{reply: reply{prediction: &client.Prediction{Label: "green"}}}
	c, _ := newTestController(p, WithModel(config.ModelOptimized))
	c.Select(tomato)

	s, err := c.SetModel(config.ModelVgg16)
	require.NoError(t, err)
	assert.Equal(t, config.ModelVgg16, s.Model)
	c.Upload(context.Background())

	_, err = c.SetModel("resnet")
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Equal(t, config.ModelVgg16, c.State().Model)

	c.SetModel(config.ModelOptimized)
	c.Upload(context.Background())
	assert.Equal(t, []string{
		"http://localhost:5000/predict/vgg16",
		"http://localhost:5000/predict/optimized",
	}, p.Calls())
}

func TestModelSwitchDoesNotAffectInFlight(t *testing.T) {
	p := &fakePredictor{gate: make(chan reply), triggered: make(chan struct{}, 1)}
	rec := &recorder{}
	c, _ := newTestController(p, WithObserver(rec))
	c.Select(tomato)

	done := make(chan State)
	go func() {
		s, _ := c.Upload(context.Background())
		done <- s
	}()
	<-p.triggered
	c.SetModel(config.ModelVgg16)
	p.gate <- reply{prediction: &client.Prediction{Label: "half_ripened", Confidence: 0.6}}
	s := <-done

	assert.Equal(t, Success, s.Phase)
	assert.Equal(t, "Half ripened", s.Result.Label)
	assert.Equal(t, config.ModelVgg16, s.Model)
	assert.Equal(t, []string{"http://localhost:5000/predict/optimized"}, p.Calls())
	assert.Equal(t, config.ModelOptimized, rec.settled[0].Model)
}

func TestResolveFailure(t *testing.T) {
	p := &fakePredictor{}
	rec := &recorder{}
	c := NewController(p, &client.TemplateResolver{Template: "http://localhost/{model}"},
		preview.NewStore(0), WithModel("resnet"), WithObserver(rec))
	c.Select(tomato)
	s, err := c.Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Failure, s.Phase)
	assert.False(t, s.Loading)
	assert.Equal(t, config.MSG_UPLOAD_ERROR, s.Error)
	assert.Empty(t, p.Calls())

	// observers see the attempt triggered before it settles
	require.Len(t, rec.triggered, 1)
	require.Len(t, rec.settled, 1)
	assert.Same(t, rec.triggered[0], rec.settled[0])
	assert.Equal(t, config.OUTCOME_FAILURE, rec.settled[0].Outcome)
	assert.Empty(t, rec.settled[0].Endpoint)
}

func TestClose(t *testing.T) {
	c, previews := newTestController(&fakePredictor{})
	c.Select(tomato)
	assert.Equal(t, 1, previews.Len())
	c.Close()
	assert.Equal(t, 0, previews.Len())
	c.Close()

	_, err := c.Select(tomato)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Upload(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestUploadSettlesOnPanic(t *testing.T) {
	c, _ := newTestController(panicPredictor{})
	c.Select(tomato)
	assert.Panics(t, func() {
		c.Upload(context.Background())
	})
	s := c.State()
	assert.False(t, s.Loading)
	assert.Equal(t, config.MSG_UPLOAD_ERROR, s.Error)

	// controller still usable
	_, err := c.SetModel(config.ModelVgg16)
	assert.Nil(t, err)
}

type panicPredictor struct{}

func (panicPredictor) Predict(context.Context, string, *client.File) (*client.Prediction, error) {
	panic("transport exploded")
}
