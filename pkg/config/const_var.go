package config

import "time"

// env
const (
	ACCESS_KEY_ID     = "ALIBABA_CLOUD_ACCESS_KEY_ID"
	ACCESS_KEY_SECRET = "ALIBABA_CLOUD_ACCESS_KEY_SECRET"
	ACCESS_KEY_TOKEN  = "ALIBABA_CLOUD_SECURITY_TOKEN"
	PREDICT_URL       = "PREDICT_URL"
	PORT              = "PORT"
)

// endpoint mode
const (
	FixedEndpoint = "fixed"
	ModelEndpoint = "model"
	ModelHolder   = "{model}"
)

// model names
const (
	ModelOptimized = "optimized"
	ModelVgg16     = "vgg16"
)

// Models is the closed set of selectable backend models.
var Models = []string{ModelOptimized, ModelVgg16}

// attempt outcome
const (
	OUTCOME_PENDING = "pending"
	OUTCOME_SUCCESS = "success"
	OUTCOME_FAILURE = "failure"
	OUTCOME_STALE   = "stale"
)

// history db type
const (
	DB_SQLITE     = "sqlite"
	DB_TABLESTORE = "tableStore"
	DB_NONE       = "none"
)

const (
	HTTPTIMEOUT     = 0 * time.Second // no timeout
	SESSION_JANITOR = 60 * time.Second
	SESSION_COOKIE  = "ripeness_session"
	FILE_FIELD      = "file"
)

// user facing message
const (
	MSG_INVALID_FILE  = "Invalid file format"
	MSG_NO_FILE       = "Please upload a file first!"
	MSG_NO_PREDICTION = "No prediction received from server."
	MSG_UNKNOWN_ERROR = "Unknown error occurred."
	MSG_UPLOAD_ERROR  = "Error occurred while uploading image."
	MSG_SERVER_PREFIX = "Error: "
)

// ERROR message
const (
	INTERNALERROR = "an internal error"
	BADREQUEST    = "bad request body"
	NOTFOUND      = "not found"
	BUSY          = "upload already in progress"
)
