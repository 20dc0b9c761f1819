package shading

import "github.com/taigrr/lumen/pkg/math3d"

// FragmentInput carries the interpolated vertex outputs for one fragment.
type FragmentInput struct {
	WorldPos math3d.Vec3
	Basis    math3d.Mat3
	UV0      math3d.Vec2
	UV1      math3d.Vec2
}

// ShadeFragment runs the full lit fragment path: surface sampling, the
// three-light Cook-Torrance loop, the hemispherical ambient term and the
// emissive add. Returns the linear HDR radiance plus ok=false when the
// fragment fails the material's alpha test and must be discarded.
//
// Alpha is fixed at 1 on this path; translucency is out of scope and
// alpha-tested geometry either passes fully opaque or is discarded.
func ShadeFragment(pass *PassData, lights *LightData, mat *Material, in FragmentInput) (color math3d.Vec4, ok bool) {
	surface := SampleSurface(mat, in.UV0, in.UV1)

	if mat.AlphaCutoff > 0 && surface.Alpha < mat.AlphaCutoff {
		return math3d.Vec4{}, false
	}

	n := in.Basis.MulVec3(surface.Normal).Normalize()
	v := pass.Eye.Sub(in.WorldPos).Normalize()
	f0 := BaseReflectance(surface.Albedo, surface.Metallic)

	var radiance math3d.Vec3
	for _, light := range lights.Lights() {
		radiance = radiance.Add(EvalDirectional(
			n, v,
			surface.Albedo, f0,
			surface.Metallic, surface.Roughness, surface.Occlusion,
			light,
		))
	}

	radiance = radiance.Add(AmbientTerm(
		lights.Ambient, n, v,
		surface.Albedo, f0,
		surface.Metallic, surface.Roughness, surface.Occlusion,
	))

	// Occlusion does not dim self-emission.
	radiance = radiance.Add(surface.Emissive)

	return math3d.V4FromV3(radiance, 1), true
}

// ShadeUnlit is the unlit fragment variant: the base color sample with no
// lighting at all. Alpha testing still applies so cutout geometry renders
// the same in both variants.
func ShadeUnlit(mat *Material, uv0 math3d.Vec2) (color math3d.Vec4, ok bool) {
	base := math3d.V4(1, 1, 1, 1)
	if mat.BaseColor != nil {
		base = mat.BaseColor.Sample(uv0.X, uv0.Y)
	}
	base = math3d.V4(
		base.X*mat.BaseColorFactor.X,
		base.Y*mat.BaseColorFactor.Y,
		base.Z*mat.BaseColorFactor.Z,
		base.W*mat.BaseColorFactor.W,
	)

	if mat.AlphaCutoff > 0 && base.W < mat.AlphaCutoff {
		return math3d.Vec4{}, false
	}
	return math3d.V4(base.X, base.Y, base.Z, 1), true
}
