package render

import (
	"math"
	"testing"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/shading"
)

// triMesh is a minimal in-memory mesh for tests.
type triMesh struct {
	verts []shading.VertexInput
	faces [][3]int
}

func (m *triMesh) VertexCount() int                 { return len(m.verts) }
func (m *triMesh) TriangleCount() int               { return len(m.faces) }
func (m *triMesh) Vertex(i int) shading.VertexInput { return m.verts[i] }
func (m *triMesh) Face(i int) [3]int                { return m.faces[i] }

// facingTriangle builds a single triangle in the XY plane facing +Z,
// counter-clockwise when seen from the camera.
func facingTriangle(size float64) *triMesh {
	n := math3d.V3(0, 0, 1)
	t := math3d.V3(1, 0, 0)
	return &triMesh{
		verts: []shading.VertexInput{
			{Position: math3d.V3(-size, -size, 0), Normal: n, Tangent: t, UV0: math3d.V2(0, 0)},
			{Position: math3d.V3(size, -size, 0), Normal: n, Tangent: t, UV0: math3d.V2(1, 0)},
			{Position: math3d.V3(0, size, 0), Normal: n, Tangent: t, UV0: math3d.V2(0.5, 1)},
		},
		faces: [][3]int{{0, 1, 2}},
	}
}

func testCamera() *Camera {
	cam := NewCamera()
	cam.SetAspectRatio(1)
	cam.SetPosition(math3d.V3(0, 0, 3))
	cam.LookAt(math3d.Zero3())
	return cam
}

func sceneLights() *shading.LightData {
	return &shading.LightData{
		Main: shading.DirectionalLight{
			Direction: math3d.V3(0, 0, -1),
			Color:     math3d.V3(2, 2, 2),
		},
		Ambient: shading.AmbientCube{
			Top:    math3d.V3(0.1, 0.1, 0.2),
			Middle: math3d.V3(0.1, 0.1, 0.1),
			Bottom: math3d.V3(0.05, 0.04, 0.03),
		},
	}
}

func TestDrawMeshLit(t *testing.T) {
	target := NewHDRTarget(16, 16)
	r := NewRasterizer(testCamera(), target)
	r.Workers = 1
	r.ClearDepth()

	mat := shading.NewMaterial()
	mat.BaseColorFactor = math3d.V4(0.8, 0.8, 0.8, 1)
	mat.MetallicFactor = 0
	mat.RoughnessFactor = 0.5

	r.DrawMeshLit(facingTriangle(1), mat, sceneLights(), shading.SingleInstance(math3d.Identity()))

	// The triangle covers the center of the screen; the main light shines
	// straight at it.
	center := target.GetPixel(8, 8)
	if center.X <= 0 || center.Y <= 0 || center.Z <= 0 {
		t.Errorf("center pixel unlit: %v", center)
	}

	// Corners stay background.
	if corner := target.GetPixel(0, 0); corner != math3d.Zero3() {
		t.Errorf("corner pixel written: %v", corner)
	}
}

func TestDrawMeshLitParallelMatchesSerial(t *testing.T) {
	mat := shading.NewMaterial()
	mat.BaseColorFactor = math3d.V4(0.6, 0.7, 0.8, 1)
	mat.MetallicFactor = 0.3
	mat.RoughnessFactor = 0.4

	renderWith := func(workers int) *HDRTarget {
		target := NewHDRTarget(32, 32)
		r := NewRasterizer(testCamera(), target)
		r.Workers = workers
		r.ClearDepth()
		r.DrawMeshLit(facingTriangle(1), mat, sceneLights(), shading.SingleInstance(math3d.Identity()))
		return target
	}

	serial := renderWith(1)
	parallel := renderWith(4)

	for i := range serial.Pixels {
		if serial.Pixels[i] != parallel.Pixels[i] {
			t.Fatalf("pixel %d differs between serial and parallel: %v vs %v",
				i, serial.Pixels[i], parallel.Pixels[i])
		}
	}
}

func TestDrawMeshUnlit(t *testing.T) {
	target := NewHDRTarget(16, 16)
	r := NewRasterizer(testCamera(), target)
	r.Workers = 1
	r.ClearDepth()

	mat := shading.NewMaterial()
	mat.BaseColorFactor = math3d.V4(0.9, 0.1, 0.5, 1)

	r.DrawMeshUnlit(facingTriangle(1), mat, shading.SingleInstance(math3d.Identity()))

	got := target.GetPixel(8, 8)
	want := math3d.V3(0.9, 0.1, 0.5)
	if !vecNear(got, want, 1e-12) {
		t.Errorf("unlit center pixel = %v, want the base color %v", got, want)
	}
}

func TestDrawMeshInstanced(t *testing.T) {
	target := NewHDRTarget(16, 16)
	r := NewRasterizer(testCamera(), target)
	r.Workers = 1
	r.ClearDepth()

	mat := shading.NewMaterial()
	mat.BaseColorFactor = math3d.V4(1, 1, 0, 1)

	instances, err := shading.NewInstanceBuffer([]math3d.Mat4{
		math3d.Translate(math3d.V3(-1, 0, 0)),
		math3d.Translate(math3d.V3(1, 0, 0)),
	})
	if err != nil {
		t.Fatalf("NewInstanceBuffer: %v", err)
	}

	r.DrawMeshUnlit(facingTriangle(0.5), mat, instances)

	if got := target.GetPixel(3, 8); got == math3d.Zero3() {
		t.Error("left instance not drawn")
	}
	if got := target.GetPixel(12, 8); got == math3d.Zero3() {
		t.Error("right instance not drawn")
	}
	if got := target.GetPixel(8, 8); got != math3d.Zero3() {
		t.Errorf("gap between instances was drawn: %v", got)
	}
}

func TestDepthTest(t *testing.T) {
	target := NewHDRTarget(16, 16)
	r := NewRasterizer(testCamera(), target)
	r.Workers = 1
	r.ClearDepth()

	near := shading.NewMaterial()
	near.BaseColorFactor = math3d.V4(1, 0, 0, 1)
	far := shading.NewMaterial()
	far.BaseColorFactor = math3d.V4(0, 1, 0, 1)

	// Near triangle first, then a farther one behind it: the depth test
	// must keep the near color.
	r.DrawMeshUnlit(facingTriangle(1), near, shading.SingleInstance(math3d.Identity()))
	r.DrawMeshUnlit(facingTriangle(1), far, shading.SingleInstance(math3d.Translate(math3d.V3(0, 0, -1))))

	got := target.GetPixel(8, 8)
	if !vecNear(got, math3d.V3(1, 0, 0), 1e-12) {
		t.Errorf("center pixel = %v, want the near triangle's red", got)
	}
}

func TestDrawMeshDepthOccludes(t *testing.T) {
	target := NewHDRTarget(16, 16)
	r := NewRasterizer(testCamera(), target)
	r.Workers = 1
	r.ClearDepth()

	// A depth-only draw writes no color but still occludes later draws.
	r.DrawMeshDepth(facingTriangle(1), shading.SingleInstance(math3d.Identity()))
	if got := target.GetPixel(8, 8); got != math3d.Zero3() {
		t.Fatalf("depth-only draw wrote color: %v", got)
	}

	mat := shading.NewMaterial()
	mat.BaseColorFactor = math3d.V4(0, 1, 0, 1)
	r.DrawMeshUnlit(facingTriangle(1), mat, shading.SingleInstance(math3d.Translate(math3d.V3(0, 0, -1))))

	if got := target.GetPixel(8, 8); got != math3d.Zero3() {
		t.Errorf("occluded triangle drawn through depth pre-pass: %v", got)
	}
}

func TestBackfaceCulling(t *testing.T) {
	target := NewHDRTarget(16, 16)
	r := NewRasterizer(testCamera(), target)
	r.Workers = 1
	r.ClearDepth()

	mat := shading.NewMaterial()

	// Flip the triangle away from the camera; clockwise winding from the
	// camera's point of view gets culled.
	r.DrawMeshUnlit(facingTriangle(1), mat, shading.SingleInstance(math3d.RotateY(math.Pi)))
	if got := target.GetPixel(8, 8); got != math3d.Zero3() {
		t.Errorf("back-facing triangle drawn: %v", got)
	}

	r.DisableBackfaceCulling = true
	r.DrawMeshUnlit(facingTriangle(1), mat, shading.SingleInstance(math3d.RotateY(math.Pi)))
	if got := target.GetPixel(8, 8); got == math3d.Zero3() {
		t.Error("culling not disabled")
	}
}

func TestAlphaCutoutKeepsBackground(t *testing.T) {
	target := NewHDRTarget(16, 16)
	r := NewRasterizer(testCamera(), target)
	r.Workers = 1
	r.ClearDepth()

	mat := shading.NewMaterial()
	mat.BaseColorFactor = math3d.V4(1, 1, 1, 0.2)
	mat.AlphaCutoff = 0.5

	r.DrawMeshUnlit(facingTriangle(1), mat, shading.SingleInstance(math3d.Identity()))

	if got := target.GetPixel(8, 8); got != math3d.Zero3() {
		t.Errorf("discarded fragment wrote color: %v", got)
	}
}

func vecNear(a, b math3d.Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}
