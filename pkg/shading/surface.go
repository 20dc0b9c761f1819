package shading

import (
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// MinRoughness is the floor applied to sampled roughness before it reaches
// the distribution and geometry terms. Zero roughness would put a 0/0 in
// the GGX lobe at NdotH=1.
const MinRoughness = 0.001

// Surface holds the material parameters resolved for one shaded fragment.
// Transient: recomputed per fragment, never cached.
type Surface struct {
	Albedo    math3d.Vec3 // Linear RGB, [0,1]
	Alpha     float64     // Base color alpha, used for alpha testing
	Metallic  float64     // [0,1]
	Roughness float64     // [MinRoughness,1]
	Occlusion float64     // [0,1]
	Normal    math3d.Vec3 // Tangent-space unit shading normal
	Emissive  math3d.Vec3 // Linear RGB radiance, already scaled by emissive power
}

// UnpackNormal reconstructs a tangent-space unit normal from the packed
// two-channel encoding: XY remapped from [0,1] to [-1,1], Z derived as the
// non-negative root of the remaining magnitude. Samples outside the unit
// disk are clamped onto it, never rejected — the reconstruction must yield
// a usable normal for every texel.
func UnpackNormal(x, y float64) math3d.Vec3 {
	nx := x*2 - 1
	ny := y*2 - 1

	d := nx*nx + ny*ny
	if d > 1 {
		inv := 1 / math.Sqrt(d)
		nx *= inv
		ny *= inv
		d = 1
	}
	nz := math.Sqrt(1 - d)
	return math3d.V3(nx, ny, nz)
}

// SampleSurface runs the surface sampling stage: resolves the material's
// texture maps and constant factors at the given UVs into a Surface. Pure
// function of its inputs; deterministic and re-evaluatable per sample.
//
// Channel packing is fixed: metallic = blue and roughness = green of the
// metallic-roughness sample, occlusion = red of the occlusion sample,
// normal XY in the first two channels of the normal sample.
func SampleSurface(mat *Material, uv0, uv1 math3d.Vec2) Surface {
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

	metallic := mat.MetallicFactor
	roughness := mat.RoughnessFactor
	if mat.MetallicRoughness != nil {
		mr := mat.MetallicRoughness.Sample(uv0.X, uv0.Y)
		metallic *= mr.Z
		roughness *= mr.Y
	}

	occlusion := 1.0
	if mat.Occlusion != nil {
		uv := uv0
		if mat.OcclusionUV1 {
			uv = uv1
		}
		occlusion = mat.Occlusion.Sample(uv.X, uv.Y).X
	}

	normal := math3d.V3(0, 0, 1)
	if mat.Normal != nil {
		n := mat.Normal.Sample(uv0.X, uv0.Y)
		normal = UnpackNormal(n.X, n.Y)
	}

	emissive := math3d.Zero3()
	if mat.EmissivePower > 0 {
		emissive = mat.EmissiveFactor
		if mat.Emissive != nil {
			e := mat.Emissive.Sample(uv0.X, uv0.Y)
			emissive = emissive.Mul(e.Vec3())
		}
		emissive = emissive.Scale(mat.EmissivePower)
	}

	return Surface{
		Albedo:    base.Vec3(),
		Alpha:     base.W,
		Metallic:  math3d.Clamp01(metallic),
		Roughness: math.Max(MinRoughness, math3d.Clamp01(roughness)),
		Occlusion: math3d.Clamp01(occlusion),
		Normal:    normal,
		Emissive:  emissive,
	}
}
