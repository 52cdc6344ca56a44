package cdnbench

import "io"

// ReadObserver receives the size of every chunk read from a response body;
// observations feed advisory progress display only.
type ReadObserver func(chunk int)

type meteredReader struct {
	src     io.Reader
	observe ReadObserver
}

func newMeteredReader(src io.Reader, observe ReadObserver) *meteredReader {
	return &meteredReader{src: src, observe: observe}
}

func (r *meteredReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 && r.observe != nil {
		r.observe(n)
	}
	return n, err
}
