package utils

import (
	"os"
	"time"
)

func TimestampS() int64 {
	return time.Now().Unix()
}

// DateDir yyyymmdd of ts, used as object key segment
func DateDir(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("20060102")
}

// FileExists check file exist
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile read local file, a directory is not a file
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &os.PathError{Op: "read", Path: path, Err: os.ErrInvalid}
	}
	return os.ReadFile(path)
}
