package shading

import (
	"math"
	"testing"

	"github.com/taigrr/lumen/pkg/math3d"
)

func testPass() *PassData {
	eye := math3d.V3(0, 0, 5)
	return &PassData{
		View:       math3d.LookAt(eye, math3d.Zero3(), math3d.Up()),
		Projection: math3d.Perspective(math.Pi/3, 16.0/9.0, 0.1, 100),
		Eye:        eye,
	}
}

func TestTransformVertexInstanceIndexing(t *testing.T) {
	// Each instance id must read exactly its own matrix, nothing shared.
	matrices := make([]math3d.Mat4, 8)
	for i := range matrices {
		matrices[i] = math3d.Translate(math3d.V3(float64(i), 0, 0))
	}
	buf, err := NewInstanceBuffer(matrices)
	if err != nil {
		t.Fatalf("NewInstanceBuffer: %v", err)
	}

	pass := testPass()
	in := VertexInput{
		Position: math3d.Zero3(),
		Normal:   math3d.V3(0, 0, 1),
		Tangent:  math3d.V3(1, 0, 0),
	}

	for id := range matrices {
		out := TransformVertex(pass, buf, id, in)
		want := math3d.V3(float64(id), 0, 0)
		if !vec3Near(out.WorldPos, want, 1e-12) {
			t.Errorf("instance %d world pos = %v, want %v", id, out.WorldPos, want)
		}
	}
}

func TestInstanceBufferCapacity(t *testing.T) {
	over := make([]math3d.Mat4, MaxInstances+1)
	if _, err := NewInstanceBuffer(over); err == nil {
		t.Error("expected error for buffer above capacity")
	}

	exact := make([]math3d.Mat4, MaxInstances)
	buf, err := NewInstanceBuffer(exact)
	if err != nil {
		t.Fatalf("buffer at capacity rejected: %v", err)
	}
	if buf.Len() != MaxInstances {
		t.Errorf("Len = %d, want %d", buf.Len(), MaxInstances)
	}

	// Out-of-range ids degrade to identity.
	if got := buf.At(-1); got != math3d.Identity() {
		t.Errorf("At(-1) = %v, want identity", got)
	}
	if got := buf.At(MaxInstances); got != math3d.Identity() {
		t.Errorf("At(len) = %v, want identity", got)
	}
}

func TestTransformVertexBasisIgnoresTranslation(t *testing.T) {
	// A huge translation must not bend normals.
	buf := SingleInstance(math3d.Translate(math3d.V3(1000, -500, 250)))
	in := VertexInput{
		Position: math3d.Zero3(),
		Normal:   math3d.V3(0, 0, 1),
		Tangent:  math3d.V3(1, 0, 0),
	}

	out := TransformVertex(testPass(), buf, 0, in)

	// The basis maps the flat tangent-space normal back onto the vertex
	// normal, untouched by the translation.
	got := out.Basis.MulVec3(math3d.V3(0, 0, 1))
	if !vec3Near(got, in.Normal, 1e-12) {
		t.Errorf("basis normal = %v, want %v", got, in.Normal)
	}
}

func TestTransformVertexBasisRotates(t *testing.T) {
	// Rotate the instance 90° about Y: +Z normals become +X.
	buf := SingleInstance(math3d.RotateY(math.Pi / 2))
	in := VertexInput{
		Position: math3d.Zero3(),
		Normal:   math3d.V3(0, 0, 1),
		Tangent:  math3d.V3(1, 0, 0),
	}

	out := TransformVertex(testPass(), buf, 0, in)

	got := out.Basis.MulVec3(math3d.V3(0, 0, 1))
	want := math3d.V3(1, 0, 0)
	if !vec3Near(got, want, 1e-12) {
		t.Errorf("rotated basis normal = %v, want %v", got, want)
	}
}

func TestTransformVertexBasisColumns(t *testing.T) {
	// With an identity model matrix the basis columns are exactly T, B, N.
	buf := SingleInstance(math3d.Identity())
	in := VertexInput{
		Position: math3d.Zero3(),
		Normal:   math3d.V3(0, 1, 0),
		Tangent:  math3d.V3(1, 0, 0),
	}

	out := TransformVertex(testPass(), buf, 0, in)

	bitangent := in.Normal.Cross(in.Tangent)
	if got := out.Basis.MulVec3(math3d.V3(1, 0, 0)); !vec3Near(got, in.Tangent, 1e-12) {
		t.Errorf("basis e0 = %v, want tangent %v", got, in.Tangent)
	}
	if got := out.Basis.MulVec3(math3d.V3(0, 1, 0)); !vec3Near(got, bitangent, 1e-12) {
		t.Errorf("basis e1 = %v, want bitangent %v", got, bitangent)
	}
	if got := out.Basis.MulVec3(math3d.V3(0, 0, 1)); !vec3Near(got, in.Normal, 1e-12) {
		t.Errorf("basis e2 = %v, want normal %v", got, in.Normal)
	}
}

func TestTransformVertexClipPosition(t *testing.T) {
	pass := testPass()
	buf := SingleInstance(math3d.Identity())
	in := VertexInput{
		Position: math3d.Zero3(),
		Normal:   math3d.V3(0, 0, 1),
		Tangent:  math3d.V3(1, 0, 0),
	}

	out := TransformVertex(pass, buf, 0, in)

	// The origin sits on the view axis 5 units in front of the camera:
	// centered in x/y, positive w equal to the view depth.
	if !near(out.ClipPos.X, 0, 1e-12) || !near(out.ClipPos.Y, 0, 1e-12) {
		t.Errorf("clip xy = (%v, %v), want centered", out.ClipPos.X, out.ClipPos.Y)
	}
	if !near(out.ClipPos.W, 5, 1e-9) {
		t.Errorf("clip w = %v, want 5", out.ClipPos.W)
	}

	ndc := out.ClipPos.PerspectiveDivide()
	if ndc.Z < -1 || ndc.Z > 1 {
		t.Errorf("ndc z = %v, outside [-1,1]", ndc.Z)
	}
}

func TestTransformPositionMatchesLitPath(t *testing.T) {
	pass := testPass()
	buf := SingleInstance(math3d.Translate(math3d.V3(1, 2, -3)).Mul(math3d.RotateZ(0.7)))
	pos := math3d.V3(0.5, -0.25, 1)

	in := VertexInput{
		Position: pos,
		Normal:   math3d.V3(0, 0, 1),
		Tangent:  math3d.V3(1, 0, 0),
	}

	lit := TransformVertex(pass, buf, 0, in).ClipPos
	depth := TransformPosition(pass, buf, 0, pos)

	if lit != depth {
		t.Errorf("depth-only clip position %v diverges from lit path %v", depth, lit)
	}
}
