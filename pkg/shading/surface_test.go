package shading

import (
	"math"
	"testing"

	"github.com/taigrr/lumen/pkg/math3d"
)

// constTexture returns the same texel for every UV.
type constTexture struct {
	v math3d.Vec4
}

func (t constTexture) Sample(u, v float64) math3d.Vec4 { return t.v }

// uvTexture echoes the UV coordinates back as R and G, which makes UV-set
// selection observable.
type uvTexture struct{}

func (uvTexture) Sample(u, v float64) math3d.Vec4 { return math3d.V4(u, v, 0, 1) }

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func vec3Near(a, b math3d.Vec3, tol float64) bool {
	return near(a.X, b.X, tol) && near(a.Y, b.Y, tol) && near(a.Z, b.Z, tol)
}

func TestUnpackNormal(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want math3d.Vec3
	}{
		{"flat", 0.5, 0.5, math3d.V3(0, 0, 1)},
		{"tilted x", 0.8, 0.5, math3d.V3(0.6, 0, 0.8)},
		{"tilted y", 0.5, 0.2, math3d.V3(0, -0.6, 0.8)},
		{"full x", 1, 0.5, math3d.V3(1, 0, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := UnpackNormal(tc.x, tc.y)
			if !vec3Near(got, tc.want, 1e-5) {
				t.Errorf("UnpackNormal(%v, %v) = %v, want %v", tc.x, tc.y, got, tc.want)
			}
		})
	}
}

func TestUnpackNormalClampsToDisk(t *testing.T) {
	// A corner texel is outside the unit disk; the reconstruction clamps it
	// onto the disk instead of producing NaN from sqrt of a negative.
	got := UnpackNormal(1, 1)
	if math.IsNaN(got.X) || math.IsNaN(got.Y) || math.IsNaN(got.Z) {
		t.Fatalf("UnpackNormal(1, 1) produced NaN: %v", got)
	}
	if !near(got.Len(), 1, 1e-9) {
		t.Errorf("clamped normal not unit length: %v (len %v)", got, got.Len())
	}
	if got.Z != 0 {
		t.Errorf("clamped normal should lie on the disk edge, z = %v", got.Z)
	}
}

func TestSampleSurfaceDefaults(t *testing.T) {
	mat := NewMaterial()
	s := SampleSurface(mat, math3d.Vec2{}, math3d.Vec2{})

	if s.Albedo != math3d.V3(1, 1, 1) {
		t.Errorf("default albedo = %v, want white", s.Albedo)
	}
	if s.Alpha != 1 {
		t.Errorf("default alpha = %v, want 1", s.Alpha)
	}
	if s.Metallic != 1 || s.Roughness != 1 {
		t.Errorf("default metallic/roughness = %v/%v, want 1/1", s.Metallic, s.Roughness)
	}
	if s.Occlusion != 1 {
		t.Errorf("default occlusion = %v, want 1", s.Occlusion)
	}
	if s.Normal != math3d.V3(0, 0, 1) {
		t.Errorf("default normal = %v, want flat", s.Normal)
	}
	if s.Emissive != math3d.Zero3() {
		t.Errorf("default emissive = %v, want zero", s.Emissive)
	}
}

func TestSampleSurfaceChannelPacking(t *testing.T) {
	mat := NewMaterial()
	// R is unused in the metallic-roughness map; G is roughness, B is
	// metallic. Occlusion reads R only.
	mat.MetallicRoughness = constTexture{math3d.V4(0.1, 0.3, 0.7, 1)}
	mat.Occlusion = constTexture{math3d.V4(0.25, 0.9, 0.9, 1)}

	s := SampleSurface(mat, math3d.Vec2{}, math3d.Vec2{})

	if !near(s.Metallic, 0.7, 1e-12) {
		t.Errorf("metallic = %v, want 0.7 (blue channel)", s.Metallic)
	}
	if !near(s.Roughness, 0.3, 1e-12) {
		t.Errorf("roughness = %v, want 0.3 (green channel)", s.Roughness)
	}
	if !near(s.Occlusion, 0.25, 1e-12) {
		t.Errorf("occlusion = %v, want 0.25 (red channel)", s.Occlusion)
	}
}

func TestSampleSurfaceFactors(t *testing.T) {
	mat := NewMaterial()
	mat.BaseColor = constTexture{math3d.V4(0.5, 1, 0.4, 0.8)}
	mat.BaseColorFactor = math3d.V4(0.5, 0.5, 1, 1)
	mat.MetallicRoughness = constTexture{math3d.V4(0, 0.8, 0.6, 1)}
	mat.MetallicFactor = 0.5
	mat.RoughnessFactor = 0.5

	s := SampleSurface(mat, math3d.Vec2{}, math3d.Vec2{})

	if !vec3Near(s.Albedo, math3d.V3(0.25, 0.5, 0.4), 1e-12) {
		t.Errorf("albedo = %v, want texture * factor", s.Albedo)
	}
	if !near(s.Alpha, 0.8, 1e-12) {
		t.Errorf("alpha = %v, want 0.8", s.Alpha)
	}
	if !near(s.Metallic, 0.3, 1e-12) {
		t.Errorf("metallic = %v, want 0.3", s.Metallic)
	}
	if !near(s.Roughness, 0.4, 1e-12) {
		t.Errorf("roughness = %v, want 0.4", s.Roughness)
	}
}

func TestSampleSurfaceRoughnessFloor(t *testing.T) {
	mat := NewMaterial()
	mat.RoughnessFactor = 0

	s := SampleSurface(mat, math3d.Vec2{}, math3d.Vec2{})
	if s.Roughness != MinRoughness {
		t.Errorf("roughness = %v, want floor %v", s.Roughness, MinRoughness)
	}
}

func TestSampleSurfaceOcclusionUVSet(t *testing.T) {
	uv0 := math3d.V2(0.2, 0)
	uv1 := math3d.V2(0.9, 0)

	mat := NewMaterial()
	mat.Occlusion = uvTexture{}

	s := SampleSurface(mat, uv0, uv1)
	if !near(s.Occlusion, 0.2, 1e-12) {
		t.Errorf("occlusion from UV0 = %v, want 0.2", s.Occlusion)
	}

	mat.OcclusionUV1 = true
	s = SampleSurface(mat, uv0, uv1)
	if !near(s.Occlusion, 0.9, 1e-12) {
		t.Errorf("occlusion from UV1 = %v, want 0.9", s.Occlusion)
	}
}

func TestSampleSurfaceEmissive(t *testing.T) {
	mat := NewMaterial()
	mat.Emissive = constTexture{math3d.V4(1, 0.5, 0, 1)}
	mat.EmissiveFactor = math3d.V3(1, 1, 1)

	// Zero power gates the whole emissive path off.
	s := SampleSurface(mat, math3d.Vec2{}, math3d.Vec2{})
	if s.Emissive != math3d.Zero3() {
		t.Errorf("emissive with zero power = %v, want zero", s.Emissive)
	}

	mat.EmissivePower = 4
	s = SampleSurface(mat, math3d.Vec2{}, math3d.Vec2{})
	if !vec3Near(s.Emissive, math3d.V3(4, 2, 0), 1e-12) {
		t.Errorf("emissive = %v, want texture * factor * power", s.Emissive)
	}
}

func TestSampleSurfaceNormalRoundTrip(t *testing.T) {
	// A flat normal packed as (0.5, 0.5) must reconstruct to +Z exactly
	// enough that lighting cannot tell the difference.
	mat := NewMaterial()
	mat.Normal = constTexture{math3d.V4(0.5, 0.5, 1, 1)}

	s := SampleSurface(mat, math3d.Vec2{}, math3d.Vec2{})
	if !vec3Near(s.Normal, math3d.V3(0, 0, 1), 1e-5) {
		t.Errorf("round-tripped flat normal = %v, want (0,0,1)", s.Normal)
	}
}
