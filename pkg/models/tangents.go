package models

import (
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// ComputeTangents fills in vertex tangents from UV derivatives for every
// vertex that the asset did not author one for. Tangents are accumulated per
// face, then Gram-Schmidt orthogonalized against the vertex normal, so the
// basis the vertex stage builds from them is well conditioned.
func ComputeTangents(m *Mesh) {
	tangents := make([]math3d.Vec3, len(m.Vertices))

	// accum adds one triangle's tangent contribution to its vertices.
	accum := func(i0, i1, i2 int) {
		v0 := m.Vertices[i0]
		v1 := m.Vertices[i1]
		v2 := m.Vertices[i2]

		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)

		du1 := v1.UV0.X - v0.UV0.X
		dv1 := v1.UV0.Y - v0.UV0.Y
		du2 := v2.UV0.X - v0.UV0.X
		dv2 := v2.UV0.Y - v0.UV0.Y

		denom := du1*dv2 - du2*dv1
		if denom == 0 {
			return // degenerate UV triangle
		}
		r := 1.0 / denom

		t := e1.Scale(dv2 * r).Sub(e2.Scale(dv1 * r))

		tangents[i0] = tangents[i0].Add(t)
		tangents[i1] = tangents[i1].Add(t)
		tangents[i2] = tangents[i2].Add(t)
	}

	for _, f := range m.Faces {
		accum(f.V[0], f.V[1], f.V[2])
	}

	// Gram-Schmidt orthogonalize and normalize each vertex tangent.
	for i := range m.Vertices {
		if m.Vertices[i].Tangent.LenSq() > 1e-8 {
			continue // authored tangent wins
		}

		n := m.Vertices[i].Normal
		t := tangents[i]

		// T = normalize(T - N*(N·T))
		t = t.Sub(n.Scale(n.Dot(t)))
		if t.LenSq() < 1e-8 {
			t = arbitraryTangent(n)
		}
		m.Vertices[i].Tangent = t.Normalize()
	}
}

// arbitraryTangent picks any unit vector perpendicular to n, for vertices
// with no usable UV gradient.
func arbitraryTangent(n math3d.Vec3) math3d.Vec3 {
	axis := math3d.V3(1, 0, 0)
	if math.Abs(n.X) > 0.9 {
		axis = math3d.V3(0, 1, 0)
	}
	return axis.Sub(n.Scale(n.Dot(axis))).Normalize()
}
