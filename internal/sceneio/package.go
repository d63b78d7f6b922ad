// Package sceneio implements the persisted scene package format and the
// .vox decoder contract the grid loader adapts. The wire layout is this
// engine's own bespoke binary format, implemented directly with
// encoding/binary rather than any third-party codec (no pack library
// implements this format — justified standard-library use, recorded in
// the project's design notes).
package sceneio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/LLLida/lidaEngine-sub000/internal/mathx"
	"github.com/LLLida/lidaEngine-sub000/internal/voxel"
)

// Magic identifies a persisted scene package file.
const Magic uint64 = 22813376969420

// headerSize is the byte length of the fixed Scene_Info header: magic(8) +
// camera_position(12) + camera_up(12) + camera_rotation(12) +
// vox_components_offset(4) + num_vox_components(4).
const headerSize = 8 + 12 + 12 + 12 + 4 + 4

// transformSize is the 32-byte Transform encoding: quat
// (16B, W,X,Y,Z order) + position (12B) + scale (4B).
const transformSize = 32

// Camera is the persisted camera pose: position, up vector, and rotation
// stored as Euler angles (camera_rotation is a plain Vec3 on the wire),
// since the
// package format predates the quaternion-only Transform used elsewhere.
type Camera struct {
	Position mgl32.Vec3
	Up       mgl32.Vec3
	Rotation mgl32.Vec3
}

// VoxModel is one persisted voxel instance: its placement transform, its
// 256-entry palette, its dimensions, and its raw voxel bytes in the
// grid's own x-fastest, y, z order (no axis reorder here,
// unlike the external .vox decoder's loader).
type VoxModel struct {
	Transform mathx.Transform
	Palette   voxel.Palette
	W, H, D   uint32
	Voxels    []byte
}

// Package is the full persisted scene: camera pose plus every voxel
// model instance.
type Package struct {
	Camera Camera
	Models []VoxModel
}

// Save writes pkg to w in the package's exact binary layout, little-endian.
func Save(w io.Writer, pkg *Package) error {
	bw := &binWriter{w: w}

	bw.u64(Magic)
	bw.vec3(pkg.Camera.Position)
	bw.vec3(pkg.Camera.Up)
	bw.vec3(pkg.Camera.Rotation)
	bw.u32(headerSize) // vox_components_offset: the model array starts right after this fixed header
	bw.u32(uint32(len(pkg.Models)))

	for i := range pkg.Models {
		m := &pkg.Models[i]
		if int(m.W*m.H*m.D) != len(m.Voxels) {
			return fmt.Errorf("sceneio: model %d voxel count mismatch: dims %dx%dx%d, have %d bytes", i, m.W, m.H, m.D, len(m.Voxels))
		}
		bw.transform(m.Transform)
		bw.palette(m.Palette)
		bw.u32(m.W)
		bw.u32(m.H)
		bw.u32(m.D)
		bw.bytes(m.Voxels)
	}
	return bw.err
}

// Load reads a persisted scene package from r. It rejects files whose
// magic does not match, logging nothing itself (the caller owns the
// logger) and returning an error instead, rather than attempting any
// partial restoration.
func Load(r io.Reader) (*Package, error) {
	br := &binReader{r: r}

	magic := br.u64()
	if br.err != nil {
		return nil, fmt.Errorf("sceneio: read header: %w", br.err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("sceneio: bad magic %#x, want %#x", magic, Magic)
	}

	pkg := &Package{}
	pkg.Camera.Position = br.vec3()
	pkg.Camera.Up = br.vec3()
	pkg.Camera.Rotation = br.vec3()
	_ = br.u32() // vox_components_offset: this reader is sequential and never seeks
	numModels := br.u32()
	if br.err != nil {
		return nil, fmt.Errorf("sceneio: read header: %w", br.err)
	}

	pkg.Models = make([]VoxModel, numModels)
	for i := range pkg.Models {
		m := &pkg.Models[i]
		m.Transform = br.transform()
		m.Palette = br.palette()
		m.W = br.u32()
		m.H = br.u32()
		m.D = br.u32()
		if br.err != nil {
			return nil, fmt.Errorf("sceneio: read model %d header: %w", i, br.err)
		}
		m.Voxels = br.bytesN(int(m.W) * int(m.H) * int(m.D))
		if br.err != nil {
			return nil, fmt.Errorf("sceneio: read model %d voxels: %w", i, br.err)
		}
	}
	return pkg, nil
}

// binWriter accumulates the first error encountered and becomes a no-op
// afterward, letting Save's call sequence read linearly without an if-err
// check after every field (the same shape cogentcore-core's binary codec
// tests exercise).
type binWriter struct {
	w   io.Writer
	err error
}

func (bw *binWriter) write(p []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(p)
}

func (bw *binWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	bw.write(b[:])
}

func (bw *binWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	bw.write(b[:])
}

func (bw *binWriter) f32(v float32) {
	bw.u32(math.Float32bits(v))
}

func (bw *binWriter) vec3(v mgl32.Vec3) {
	bw.f32(v.X())
	bw.f32(v.Y())
	bw.f32(v.Z())
}

func (bw *binWriter) transform(t mathx.Transform) {
	bw.f32(t.Rotation.W)
	bw.f32(t.Rotation.V.X())
	bw.f32(t.Rotation.V.Y())
	bw.f32(t.Rotation.V.Z())
	bw.vec3(t.Position)
	bw.f32(t.Scale)
}

func (bw *binWriter) palette(p voxel.Palette) {
	for _, c := range p {
		bw.u32(c)
	}
}

func (bw *binWriter) bytes(p []byte) {
	bw.write(p)
}

type binReader struct {
	r   io.Reader
	err error
}

func (br *binReader) readN(n int) []byte {
	if br.err != nil {
		return make([]byte, n)
	}
	buf := make([]byte, n)
	_, br.err = io.ReadFull(br.r, buf)
	return buf
}

func (br *binReader) u32() uint32 {
	return binary.LittleEndian.Uint32(br.readN(4))
}

func (br *binReader) u64() uint64 {
	return binary.LittleEndian.Uint64(br.readN(8))
}

func (br *binReader) f32() float32 {
	return math.Float32frombits(br.u32())
}

func (br *binReader) vec3() mgl32.Vec3 {
	return mgl32.Vec3{br.f32(), br.f32(), br.f32()}
}

func (br *binReader) transform() mathx.Transform {
	w := br.f32()
	x := br.f32()
	y := br.f32()
	z := br.f32()
	pos := br.vec3()
	scale := br.f32()
	return mathx.Transform{
		Rotation: mgl32.Quat{W: w, V: mgl32.Vec3{x, y, z}},
		Position: pos,
		Scale:    scale,
	}
}

func (br *binReader) palette() voxel.Palette {
	var p voxel.Palette
	for i := range p {
		p[i] = br.u32()
	}
	return p
}

func (br *binReader) bytesN(n int) []byte {
	return br.readN(n)
}
