//go:build !opengl

package compute

import "runtime"

func newAccelerated() (Backend, error) {
	if runtime.GOMAXPROCS(0) < 2 {
		return nil, ErrUnavailable
	}
	return NewParallelBackend(0), nil
}
