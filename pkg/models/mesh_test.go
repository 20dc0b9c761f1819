package models

import (
	"math"
	"testing"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/render"
)

// quadMesh builds a unit quad in the XY plane with straightforward UVs.
func quadMesh() *Mesh {
	m := NewMesh("quad")
	n := math3d.V3(0, 0, 1)
	m.Vertices = []MeshVertex{
		{Position: math3d.V3(0, 0, 0), Normal: n, UV0: math3d.V2(0, 0)},
		{Position: math3d.V3(1, 0, 0), Normal: n, UV0: math3d.V2(1, 0)},
		{Position: math3d.V3(1, 1, 0), Normal: n, UV0: math3d.V2(1, 1)},
		{Position: math3d.V3(0, 1, 0), Normal: n, UV0: math3d.V2(0, 1)},
	}
	m.Faces = []Face{
		{V: [3]int{0, 1, 2}, Material: -1},
		{V: [3]int{0, 2, 3}, Material: -1},
	}
	return m
}

func TestCalculateBounds(t *testing.T) {
	m := quadMesh()
	m.CalculateBounds()

	if m.BoundsMin != math3d.Zero3() {
		t.Errorf("BoundsMin = %v, want origin", m.BoundsMin)
	}
	if m.BoundsMax != math3d.V3(1, 1, 0) {
		t.Errorf("BoundsMax = %v, want (1,1,0)", m.BoundsMax)
	}
	if m.Center() != math3d.V3(0.5, 0.5, 0) {
		t.Errorf("Center = %v", m.Center())
	}
}

func TestCalculateSmoothNormals(t *testing.T) {
	m := quadMesh()
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}
	m.CalculateSmoothNormals()

	// A flat CCW quad gets +Z normals everywhere.
	for i, v := range m.Vertices {
		if math.Abs(v.Normal.Z-1) > 1e-9 {
			t.Errorf("vertex %d normal = %v, want +Z", i, v.Normal)
		}
	}
}

func TestComputeTangents(t *testing.T) {
	m := quadMesh()
	ComputeTangents(m)

	for i, v := range m.Vertices {
		// Tangents must be unit length and perpendicular to the normal.
		if math.Abs(v.Tangent.Len()-1) > 1e-9 {
			t.Errorf("vertex %d tangent not unit: %v", i, v.Tangent)
		}
		if math.Abs(v.Tangent.Dot(v.Normal)) > 1e-9 {
			t.Errorf("vertex %d tangent not orthogonal to normal: %v", i, v.Tangent)
		}
		// With UVs aligned to the XY axes, the tangent follows +X.
		if math.Abs(v.Tangent.X-1) > 1e-9 {
			t.Errorf("vertex %d tangent = %v, want +X", i, v.Tangent)
		}
	}
}

func TestComputeTangentsKeepsAuthored(t *testing.T) {
	m := quadMesh()
	authored := math3d.V3(0, 1, 0)
	m.Vertices[0].Tangent = authored

	ComputeTangents(m)

	if m.Vertices[0].Tangent != authored {
		t.Errorf("authored tangent replaced: %v", m.Vertices[0].Tangent)
	}
	if m.Vertices[1].Tangent == math3d.Zero3() {
		t.Error("missing tangent not generated")
	}
}

func TestComputeTangentsDegenerate(t *testing.T) {
	// All three vertices share one UV; the gradient is undefined and the
	// fallback must still produce a valid basis.
	m := NewMesh("degenerate")
	n := math3d.V3(0, 1, 0)
	m.Vertices = []MeshVertex{
		{Position: math3d.V3(0, 0, 0), Normal: n},
		{Position: math3d.V3(1, 0, 0), Normal: n},
		{Position: math3d.V3(0, 0, 1), Normal: n},
	}
	m.Faces = []Face{{V: [3]int{0, 1, 2}, Material: -1}}

	ComputeTangents(m)

	for i, v := range m.Vertices {
		if math.Abs(v.Tangent.Len()-1) > 1e-9 {
			t.Errorf("vertex %d fallback tangent not unit: %v", i, v.Tangent)
		}
		if math.Abs(v.Tangent.Dot(v.Normal)) > 1e-9 {
			t.Errorf("vertex %d fallback tangent not orthogonal: %v", i, v.Tangent)
		}
	}
}

func TestFaceMaterial(t *testing.T) {
	m := quadMesh()
	m.Materials = []*Material{
		{Name: "red"},
		{Name: "green"},
	}
	m.Faces[0].Material = 1
	m.Faces[1].Material = -1

	if got := m.FaceMaterial(0); got == nil || got.Name != "green" {
		t.Errorf("FaceMaterial(0) = %v, want green", got)
	}
	if got := m.FaceMaterial(1); got != nil {
		t.Errorf("FaceMaterial(1) = %v, want nil", got)
	}
}

func TestMaterialShading(t *testing.T) {
	tex := render.NewSolidTexture(math3d.V4(1, 1, 1, 1))
	mat := &Material{
		Name:            "painted metal",
		BaseColorFactor: math3d.V4(0.5, 0.5, 0.5, 1),
		MetallicFactor:  0.9,
		RoughnessFactor: 0.2,
		EmissiveFactor:  math3d.V3(1, 0, 0),
		EmissivePower:   3,
		AlphaCutoff:     0.5,
		OcclusionUV1:    true,

		BaseColorTexture: tex,
		OcclusionTexture: tex,
	}

	s := mat.Shading()

	if s.BaseColorFactor != mat.BaseColorFactor {
		t.Errorf("BaseColorFactor = %v", s.BaseColorFactor)
	}
	if s.MetallicFactor != 0.9 || s.RoughnessFactor != 0.2 {
		t.Errorf("factors = %v/%v", s.MetallicFactor, s.RoughnessFactor)
	}
	if s.EmissivePower != 3 || s.AlphaCutoff != 0.5 {
		t.Errorf("emissive power / cutoff = %v/%v", s.EmissivePower, s.AlphaCutoff)
	}
	if !s.OcclusionUV1 {
		t.Error("OcclusionUV1 not carried over")
	}
	if s.BaseColor == nil || s.Occlusion == nil {
		t.Error("bound textures not carried over")
	}
	if s.Normal != nil || s.MetallicRoughness != nil || s.Emissive != nil {
		t.Error("unbound textures should stay nil")
	}
}

func TestMaterialGroups(t *testing.T) {
	m := quadMesh()
	m.Materials = []*Material{
		{Name: "red"},
		{Name: "green"},
	}
	m.Faces[0].Material = 1
	m.Faces[1].Material = 0
	m.Faces = append(m.Faces, Face{V: [3]int{0, 1, 3}, Material: 1})

	groups := m.MaterialGroups()
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	// First-seen order: green (face 0), then red (face 1).
	if groups[0].Material.Name != "green" || groups[0].TriangleCount() != 2 {
		t.Errorf("group 0 = %q with %d faces", groups[0].Material.Name, groups[0].TriangleCount())
	}
	if groups[1].Material.Name != "red" || groups[1].TriangleCount() != 1 {
		t.Errorf("group 1 = %q with %d faces", groups[1].Material.Name, groups[1].TriangleCount())
	}

	// Group face indices resolve through to the mesh faces.
	if got := groups[0].Face(1); got != [3]int{0, 1, 3} {
		t.Errorf("group 0 face 1 = %v", got)
	}
	if groups[0].VertexCount() != m.VertexCount() {
		t.Error("group should expose the full vertex range")
	}
}

func TestMeshClone(t *testing.T) {
	m := quadMesh()
	m.CalculateBounds()
	clone := m.Clone()

	clone.Vertices[0].Position = math3d.V3(9, 9, 9)
	if m.Vertices[0].Position == clone.Vertices[0].Position {
		t.Error("clone shares vertex storage with the original")
	}
}
