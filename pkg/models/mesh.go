// Package models provides 3D model loading and representation for Lumen.
package models

import (
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/render"
	"github.com/taigrr/lumen/pkg/shading"
)

// Mesh represents a 3D mesh with vertices, faces, and materials.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []*Material

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	Tangent  math3d.Vec3
	UV0      math3d.Vec2
	UV1      math3d.Vec2
}

// Face represents a triangle face with vertex indices and material reference.
type Face struct {
	V        [3]int // Indices into Mesh.Vertices
	Material int    // Index into Mesh.Materials (-1 for no material)
}

// Material is the asset-side material: factors plus bound textures, ready to
// hand to the shading stages.
type Material struct {
	Name string

	BaseColorFactor math3d.Vec4
	MetallicFactor  float64
	RoughnessFactor float64
	EmissiveFactor  math3d.Vec3
	EmissivePower   float64
	AlphaCutoff     float64

	BaseColorTexture         *render.Texture
	NormalTexture            *render.Texture
	MetallicRoughnessTexture *render.Texture
	OcclusionTexture         *render.Texture
	EmissiveTexture          *render.Texture

	// OcclusionUV1 is set when the asset binds the occlusion map to the
	// second UV set.
	OcclusionUV1 bool

	// Unlit materials skip the light loop entirely.
	Unlit bool
}

// DefaultMaterial returns a plain white lit material.
func DefaultMaterial() *Material {
	return &Material{
		BaseColorFactor: math3d.V4(1, 1, 1, 1),
		MetallicFactor:  1,
		RoughnessFactor: 1,
	}
}

// Shading builds the object-frequency parameter block for this material.
// Nil textures stay nil; the surface stage supplies neutral fallbacks.
func (m *Material) Shading() *shading.Material {
	out := &shading.Material{
		BaseColorFactor: m.BaseColorFactor,
		MetallicFactor:  m.MetallicFactor,
		RoughnessFactor: m.RoughnessFactor,
		EmissiveFactor:  m.EmissiveFactor,
		EmissivePower:   m.EmissivePower,
		AlphaCutoff:     m.AlphaCutoff,
		OcclusionUV1:    m.OcclusionUV1,
	}
	if m.BaseColorTexture != nil {
		out.BaseColor = m.BaseColorTexture
	}
	if m.NormalTexture != nil {
		out.Normal = m.NormalTexture
	}
	if m.MetallicRoughnessTexture != nil {
		out.MetallicRoughness = m.MetallicRoughnessTexture
	}
	if m.OcclusionTexture != nil {
		out.Occlusion = m.OcclusionTexture
	}
	if m.EmissiveTexture != nil {
		out.Emissive = m.EmissiveTexture
	}
	return out
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// Vertex returns the vertex stage input for vertex i.
// Implements render.MeshSource.
func (m *Mesh) Vertex(i int) shading.VertexInput {
	v := m.Vertices[i]
	return shading.VertexInput{
		Position: v.Position,
		Normal:   v.Normal,
		Tangent:  v.Tangent,
		UV0:      v.UV0,
		UV1:      v.UV1,
	}
}

// Face returns the vertex indices for face i.
// Implements render.MeshSource.
func (m *Mesh) Face(i int) [3]int {
	return m.Faces[i].V
}

// FaceMaterial returns the material for face i, nil when none is assigned.
func (m *Mesh) FaceMaterial(i int) *Material {
	idx := m.Faces[i].Material
	if idx < 0 || idx >= len(m.Materials) {
		return nil
	}
	return m.Materials[idx]
}

// MaterialGroup is a view over the faces of a mesh that share one material.
// It exposes the same mesh-source surface as the full mesh, so each group can
// be drawn as its own batch with its material bound.
type MaterialGroup struct {
	Material *Material // nil for faces with no material assigned

	mesh  *Mesh
	faces []int // Indices into mesh.Faces
}

// MaterialGroups splits the mesh faces into per-material batches, in the
// order the materials first appear.
func (m *Mesh) MaterialGroups() []*MaterialGroup {
	var groups []*MaterialGroup
	byMat := make(map[int]*MaterialGroup)

	for i, f := range m.Faces {
		g, ok := byMat[f.Material]
		if !ok {
			g = &MaterialGroup{Material: m.FaceMaterial(i), mesh: m}
			byMat[f.Material] = g
			groups = append(groups, g)
		}
		g.faces = append(g.faces, i)
	}

	return groups
}

// VertexCount returns the vertex count of the underlying mesh.
func (g *MaterialGroup) VertexCount() int {
	return g.mesh.VertexCount()
}

// TriangleCount returns the number of faces in this group.
func (g *MaterialGroup) TriangleCount() int {
	return len(g.faces)
}

// Vertex returns the vertex stage input for vertex i of the underlying mesh.
func (g *MaterialGroup) Vertex(i int) shading.VertexInput {
	return g.mesh.Vertex(i)
}

// Face returns the vertex indices for the group's face i.
func (g *MaterialGroup) Face(i int) [3]int {
	return g.mesh.Faces[g.faces[i]].V
}

// CalculateSmoothNormals computes averaged normals for smooth shading.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	// Accumulate area-weighted face normals per vertex
	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		edge1 := v1.Sub(v0)
		edge2 := v2.Sub(v0)
		normal := edge1.Cross(edge2) // Don't normalize yet

		m.Vertices[f.V[0]].Normal = m.Vertices[f.V[0]].Normal.Add(normal)
		m.Vertices[f.V[1]].Normal = m.Vertices[f.V[1]].Normal.Add(normal)
		m.Vertices[f.V[2]].Normal = m.Vertices[f.V[2]].Normal.Add(normal)
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// Clone creates a deep copy of the mesh. Materials are shared, not copied.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:      m.Name,
		Vertices:  make([]MeshVertex, len(m.Vertices)),
		Faces:     make([]Face, len(m.Faces)),
		Materials: make([]*Material, len(m.Materials)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	copy(clone.Materials, m.Materials)
	return clone
}
