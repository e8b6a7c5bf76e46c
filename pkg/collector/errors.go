package collector

import "errors"

var errEmptyResult = errors.New("query returned no usable result")
