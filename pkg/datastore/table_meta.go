package datastore

// attempts table
const (
	KAttemptTableName  = "attempts"
	KAttemptId         = "ATTEMPT_ID"
	KAttemptSession    = "ATTEMPT_SESSION"
	KAttemptFile       = "ATTEMPT_FILE"
	KAttemptModel      = "ATTEMPT_MODEL"
	KAttemptEndpoint   = "ATTEMPT_ENDPOINT"
	KAttemptOutcome    = "ATTEMPT_OUTCOME"
	KAttemptRawLabel   = "ATTEMPT_RAW_LABEL"
	KAttemptLabel      = "ATTEMPT_LABEL"
	KAttemptConfidence = "ATTEMPT_CONFIDENCE"
	KAttemptError      = "ATTEMPT_ERROR"
	KAttemptCreateTime = "ATTEMPT_CREATE_TIME"
	KAttemptFinishTime = "ATTEMPT_FINISH_TIME"
)
