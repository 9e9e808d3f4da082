package module

import (
	"errors"
	"sort"

	"github.com/devsapp/ripeness-uploader/pkg/client"
	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/datastore"
	"github.com/devsapp/ripeness-uploader/pkg/upload"
	"github.com/sirupsen/logrus"
)

var attemptColumns = []string{
	datastore.KAttemptSession,
	datastore.KAttemptFile,
	datastore.KAttemptModel,
	datastore.KAttemptEndpoint,
	datastore.KAttemptOutcome,
	datastore.KAttemptRawLabel,
	datastore.KAttemptLabel,
	datastore.KAttemptConfidence,
	datastore.KAttemptError,
	datastore.KAttemptCreateTime,
	datastore.KAttemptFinishTime,
}

// HistoryManager record upload attempts into the attempts table
type HistoryManager struct {
	store datastore.Datastore
}

func NewHistoryManager(store datastore.Datastore) *HistoryManager {
	return &HistoryManager{store: store}
}

// Triggered record the attempt as pending
func (h *HistoryManager) Triggered(attempt *upload.Attempt, _ *client.File) {
	if err := h.Put(attempt); err != nil {
		logrus.WithFields(logrus.Fields{"attemptId": attempt.ID}).Errorf("history put err=%s", err.Error())
	}
}

// Settled update the pending record with the outcome
func (h *HistoryManager) Settled(attempt *upload.Attempt) {
	if err := h.store.Update(attempt.ID, map[string]interface{}{
		datastore.KAttemptEndpoint:   attempt.Endpoint,
		datastore.KAttemptOutcome:    attempt.Outcome,
		datastore.KAttemptRawLabel:   attempt.RawLabel,
		datastore.KAttemptLabel:      attempt.Label,
		datastore.KAttemptConfidence: attempt.Confidence,
		datastore.KAttemptError:      attempt.Error,
		datastore.KAttemptFinishTime: attempt.FinishTime,
	}); err != nil {
		logrus.WithFields(logrus.Fields{"attemptId": attempt.ID}).Errorf("history update err=%s", err.Error())
	}
}

// Put write the whole attempt, an attempt without outcome is pending
func (h *HistoryManager) Put(attempt *upload.Attempt) error {
	if attempt.ID == "" {
		return errors.New("attempt id cannot be empty")
	}
	outcome := attempt.Outcome
	if outcome == "" {
		outcome = config.OUTCOME_PENDING
	}
	return h.store.Put(attempt.ID, map[string]interface{}{
		datastore.KAttemptSession:    attempt.Session,
		datastore.KAttemptFile:       attempt.FileName,
		datastore.KAttemptModel:      attempt.Model,
		datastore.KAttemptEndpoint:   attempt.Endpoint,
		datastore.KAttemptOutcome:    outcome,
		datastore.KAttemptRawLabel:   attempt.RawLabel,
		datastore.KAttemptLabel:      attempt.Label,
		datastore.KAttemptConfidence: attempt.Confidence,
		datastore.KAttemptError:      attempt.Error,
		datastore.KAttemptCreateTime: attempt.CreateTime,
		datastore.KAttemptFinishTime: attempt.FinishTime,
	})
}

func (h *HistoryManager) Get(id string) (*upload.Attempt, error) {
	data, err := h.store.Get(id, attemptColumns)
	if err != nil || data == nil {
		return nil, err
	}
	return toAttempt(id, data), nil
}

// List newest first, limit <= 0 means all
func (h *HistoryManager) List(limit int) ([]*upload.Attempt, error) {
	rows, err := h.store.ListAll(attemptColumns)
	if err != nil {
		return nil, err
	}
	ret := make([]*upload.Attempt, 0, len(rows))
	for id, data := range rows {
		ret = append(ret, toAttempt(id, data))
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreateTime != ret[j].CreateTime {
			return ret[i].CreateTime > ret[j].CreateTime
		}
		return ret[i].ID < ret[j].ID
	})
	if limit > 0 && len(ret) > limit {
		ret = ret[:limit]
	}
	return ret, nil
}

func (h *HistoryManager) Close() error {
	return h.store.Close()
}

func toAttempt(id string, data map[string]interface{}) *upload.Attempt {
	return &upload.Attempt{
		ID:         id,
		Session:    getString(data, datastore.KAttemptSession),
		FileName:   getString(data, datastore.KAttemptFile),
		Model:      getString(data, datastore.KAttemptModel),
		Endpoint:   getString(data, datastore.KAttemptEndpoint),
		Outcome:    getString(data, datastore.KAttemptOutcome),
		RawLabel:   getString(data, datastore.KAttemptRawLabel),
		Label:      getString(data, datastore.KAttemptLabel),
		Confidence: getFloat(data, datastore.KAttemptConfidence),
		Error:      getString(data, datastore.KAttemptError),
		CreateTime: getInt(data, datastore.KAttemptCreateTime),
		FinishTime: getInt(data, datastore.KAttemptFinishTime),
	}
}

func getString(data map[string]interface{}, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func getInt(data map[string]interface{}, key string) int64 {
	switch v := data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func getFloat(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}
