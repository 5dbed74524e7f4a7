package service

import "errors"

// ErrStart wraps every failure to bring the pipeline up.
var ErrStart = errors.New("service start failed")
