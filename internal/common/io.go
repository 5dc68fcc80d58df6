package common

import "io"

// Close absorbs the error of a deferred Close. A nil closer is ignored.
func Close(o io.Closer) {
	if o == nil {
		return
	}
	_ = o.Close()
}
