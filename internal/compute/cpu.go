package compute

// CPUBackend runs every kernel serially on the calling goroutine. It is the
// reference path that tests compare other backends against.
type CPUBackend struct{}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

func (c *CPUBackend) Dispatch(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	fn(0, n)
}
