package shading

import "github.com/taigrr/lumen/pkg/math3d"

// VertexInput is the per-vertex attribute set in object space. Position is
// required; normal and tangent are required for the lit path; UV1 is only
// consumed by materials that bind a map to the second UV set.
//
// Degenerate tangents (zero length or parallel to the normal) produce an
// ill-conditioned basis; the asset pipeline owns that precondition and the
// stage does not guard it.
type VertexInput struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	Tangent  math3d.Vec3
	UV0      math3d.Vec2
	UV1      math3d.Vec2
}

// VertexOutput is what the vertex transform stage hands the rasterizer:
// clip-space position for projection, world-space position for view and
// light vectors, and the tangent-space basis for normal mapping.
type VertexOutput struct {
	ClipPos  math3d.Vec4
	WorldPos math3d.Vec3
	Basis    math3d.Mat3 // Maps tangent space to world space
	UV0      math3d.Vec2
	UV1      math3d.Vec2
}

// TransformVertex runs the vertex transform stage for one vertex of the
// given instance: clip position = projection · view · model · position,
// world position = model · position, and the TBN basis built from the
// rotation/scale part of the model matrix only, so translation can never
// leak into normal transforms.
func TransformVertex(pass *PassData, instances *InstanceBuffer, id int, in VertexInput) VertexOutput {
	model := instances.At(id)
	world := model.MulVec3(in.Position)
	clip := pass.Projection.Mul(pass.View).MulVec4(math3d.V4FromV3(world, 1))

	bitangent := in.Normal.Cross(in.Tangent)
	tbn := math3d.Mat3FromRows(in.Tangent, bitangent, in.Normal).Transpose()
	basis := model.Upper3().Mul(tbn)

	return VertexOutput{
		ClipPos:  clip,
		WorldPos: world,
		Basis:    basis,
		UV0:      in.UV0,
		UV1:      in.UV1,
	}
}

// TransformPosition is the depth-only vertex path: clip-space position and
// nothing else. Used by depth pre-pass style draws that write no color.
func TransformPosition(pass *PassData, instances *InstanceBuffer, id int, position math3d.Vec3) math3d.Vec4 {
	world := instances.At(id).MulVec3(position)
	return pass.Projection.Mul(pass.View).MulVec4(math3d.V4FromV3(world, 1))
}
