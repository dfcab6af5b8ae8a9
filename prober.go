package conform

import "os/exec"

// BackendProber reports whether a C compiler backend can be used.
type BackendProber interface {
	Available(backend string) bool
}

// BackendProberFunc adapts a plain function to a BackendProber.
type BackendProberFunc func(backend string) bool

func (f BackendProberFunc) Available(backend string) bool {
	return f(backend)
}

// PathProber looks backends up as executables on PATH.
type PathProber struct {
	LookPath func(file string) (string, error) // exec.LookPath when nil
}

func (p PathProber) Available(backend string) bool {
	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	_, err := lookPath(backend)
	return err == nil
}
