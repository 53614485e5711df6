package profiler

import (
	"github.com/ezrec/nativecpu/translate"
)

var f = translate.From

var (
	ErrUnbalanced = translate.Error("frame exit without a frame entry")
)
