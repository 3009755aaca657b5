//go:build opengl

package compute

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	// GL contexts are bound to the thread that created them.
	runtime.LockOSThread()
}

// latticeShader performs BGK collision and push streaming for one cell.
// Direction order matches the lbm package.
const latticeShader = `#version 430
layout(local_size_x = 16, local_size_y = 16) in;
layout(std430, binding = 0) readonly buffer FIn { float fin[]; };
layout(std430, binding = 1) writeonly buffer FOut { float fout[]; };
layout(std430, binding = 2) readonly buffer Solid { int solid[]; };
uniform ivec2 size;
uniform float omega;

const ivec2 c[9] = ivec2[9](
	ivec2(0, 0), ivec2(1, 0), ivec2(0, 1), ivec2(-1, 0), ivec2(0, -1),
	ivec2(1, 1), ivec2(-1, 1), ivec2(-1, -1), ivec2(1, -1));
const float w[9] = float[9](
	4.0/9.0, 1.0/9.0, 1.0/9.0, 1.0/9.0, 1.0/9.0,
	1.0/36.0, 1.0/36.0, 1.0/36.0, 1.0/36.0);

void main() {
	ivec2 p = ivec2(gl_GlobalInvocationID.xy);
	if (p.x >= size.x || p.y >= size.y) return;
	int cell = p.y * size.x + p.x;

	float f[9];
	float rho = 0.0;
	vec2 u = vec2(0.0);
	for (int q = 0; q < 9; q++) {
		f[q] = fin[cell * 9 + q];
		rho += f[q];
		u += f[q] * vec2(c[q]);
	}

	if (solid[cell] == 0) {
		u = rho > 0.0 ? u / rho : vec2(0.0);
		float usq = dot(u, u);
		for (int q = 0; q < 9; q++) {
			float cu = dot(vec2(c[q]), u);
			float feq = w[q] * rho * (1.0 + 3.0*cu + 4.5*cu*cu - 1.5*usq);
			f[q] += omega * (feq - f[q]);
		}
	}

	for (int q = 0; q < 9; q++) {
		ivec2 n = (p + c[q] + size) % size;
		fout[(n.y * size.x + n.x) * 9 + q] = f[q];
	}
}
` + "\x00"

// OpenGLBackend runs lattice passes in a compute shader on a hidden GLFW
// context. Generic kernels go to a goroutine pool since they are Go code.
type OpenGLBackend struct {
	window  *glfw.Window
	program uint32
	ssbo    [3]uint32
	pool    *ParallelBackend

	host  []float32
	solid []int32
}

// NewOpenGLBackend creates the context and compiles the lattice shader.
// It must run on the thread that will dispatch.
func NewOpenGLBackend() (*OpenGLBackend, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: glfw: %v", ErrUnavailable, err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(1, 1, "fluidsim compute", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: context: %v", ErrUnavailable, err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("%w: gl: %v", ErrUnavailable, err)
	}

	program, err := createComputeProgram(latticeShader)
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	b := &OpenGLBackend{
		window:  window,
		program: program,
		pool:    NewParallelBackend(0),
	}
	gl.GenBuffers(int32(len(b.ssbo)), &b.ssbo[0])
	return b, nil
}

func (b *OpenGLBackend) Name() string    { return "opengl" }
func (b *OpenGLBackend) Available() bool { return b.window != nil }

func (b *OpenGLBackend) Dispatch(n int, fn func(lo, hi int)) {
	b.pool.Dispatch(n, fn)
}

// CollideStream uploads the lattice, runs one collide+stream pass and reads
// the streamed distributions back into f.
func (b *OpenGLBackend) CollideStream(f []float64, solid []bool, nx, ny int, omega float64) error {
	cells := nx * ny
	if len(f) != cells*9 || len(solid) != cells {
		return fmt.Errorf("compute: lattice size mismatch: %d values for %dx%d", len(f), nx, ny)
	}
	if cap(b.host) < len(f) {
		b.host = make([]float32, len(f))
		b.solid = make([]int32, cells)
	}
	b.host = b.host[:len(f)]
	b.solid = b.solid[:cells]
	for i, v := range f {
		b.host[i] = float32(v)
	}
	for i, s := range solid {
		b.solid[i] = 0
		if s {
			b.solid[i] = 1
		}
	}

	bytes := len(b.host) * 4
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.ssbo[0])
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, bytes, gl.Ptr(b.host), gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, b.ssbo[0])

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.ssbo[1])
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, bytes, nil, gl.DYNAMIC_COPY)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 1, b.ssbo[1])

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.ssbo[2])
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, cells*4, gl.Ptr(b.solid), gl.DYNAMIC_DRAW)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 2, b.ssbo[2])

	gl.UseProgram(b.program)
	gl.Uniform2i(gl.GetUniformLocation(b.program, gl.Str("size\x00")), int32(nx), int32(ny))
	gl.Uniform1f(gl.GetUniformLocation(b.program, gl.Str("omega\x00")), float32(omega))

	gl.DispatchCompute(uint32((nx+15)/16), uint32((ny+15)/16), 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.ssbo[1])
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, bytes, gl.Ptr(b.host))

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("compute: gl error 0x%x", code)
	}
	for i, v := range b.host {
		f[i] = float64(v)
	}
	return nil
}

func (b *OpenGLBackend) Cleanup() {
	if b.window == nil {
		return
	}
	gl.DeleteBuffers(int32(len(b.ssbo)), &b.ssbo[0])
	gl.DeleteProgram(b.program)
	b.window.Destroy()
	b.window = nil
	glfw.Terminate()
}

func createComputeProgram(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("failed to compile compute shader: %v", log)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		return 0, fmt.Errorf("failed to link program")
	}

	gl.DeleteShader(shader)
	return program, nil
}

func newAccelerated() (Backend, error) {
	b, err := NewOpenGLBackend()
	if err != nil {
		return nil, err
	}
	return b, nil
}
