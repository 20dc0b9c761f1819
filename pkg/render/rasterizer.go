package render

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/shading"
)

// MeshSource is what the rasterizer needs from a mesh. Defined here rather
// than importing the models package to avoid a circular dependency.
type MeshSource interface {
	VertexCount() int
	TriangleCount() int
	Vertex(i int) shading.VertexInput
	Face(i int) [3]int
}

// drawMode selects the fragment path for a batch of triangles.
type drawMode int

const (
	modeLit drawMode = iota
	modeUnlit
	modeDepth
)

// screenVertex holds one vertex after projection to screen space, plus the
// vertex stage outputs needed for perspective-correct interpolation.
type screenVertex struct {
	X, Y float64 // Screen coordinates
	Z    float64 // NDC depth (for Z-buffer)
	invW float64 // 1/w (for perspective-correct interpolation)
	out  shading.VertexOutput
}

// screenTriangle is a triangle that survived projection and culling, ready
// for the shading loop.
type screenTriangle struct {
	v                      [3]screenVertex
	minX, maxX, minY, maxY int
}

// Rasterizer runs the main render pass: vertex transform, triangle setup
// and Z-buffered fragment shading into an HDR target.
type Rasterizer struct {
	camera  *Camera
	target  *HDRTarget
	zbuffer []float64 // Depth buffer (1D array, row-major)

	// Workers is the number of goroutines sharing the fragment loop. Rows
	// are dealt out round-robin so no two workers touch the same pixel.
	// Zero means one worker per CPU.
	Workers int

	// DisableBackfaceCulling renders both sides of triangles.
	DisableBackfaceCulling bool
}

// NewRasterizer creates a rasterizer drawing into the given target.
func NewRasterizer(camera *Camera, target *HDRTarget) *Rasterizer {
	r := &Rasterizer{
		camera: camera,
		target: target,
	}
	r.Resize()
	return r
}

// Resize resizes the rasterizer's depth buffer to match the target.
func (r *Rasterizer) Resize() {
	if r.target == nil {
		r.zbuffer = nil
		return
	}
	r.zbuffer = make([]float64, r.target.Width*r.target.Height)
}

// Width returns the target width.
func (r *Rasterizer) Width() int {
	if r.target == nil {
		return 0
	}
	return r.target.Width
}

// Height returns the target height.
func (r *Rasterizer) Height() int {
	if r.target == nil {
		return 0
	}
	return r.target.Height
}

// ClearDepth clears the Z-buffer (call before each frame).
func (r *Rasterizer) ClearDepth() {
	// Use copy-doubling for faster clearing
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

// DrawMeshLit renders all instances of a mesh through the full lit path:
// vertex transform, surface sampling, the Cook-Torrance light loop and the
// ambient term, writing linear radiance.
func (r *Rasterizer) DrawMeshLit(mesh MeshSource, mat *shading.Material, lights *shading.LightData, instances *shading.InstanceBuffer) {
	pass := r.camera.PassData()
	tris := r.setupTriangles(mesh, pass, instances)
	r.shadeTriangles(tris, modeLit, pass, lights, mat)
}

// DrawMeshUnlit renders all instances with the unlit variant: base color
// only, no lights. Alpha-tested cutouts behave the same as in the lit path.
func (r *Rasterizer) DrawMeshUnlit(mesh MeshSource, mat *shading.Material, instances *shading.InstanceBuffer) {
	pass := r.camera.PassData()
	tris := r.setupTriangles(mesh, pass, instances)
	r.shadeTriangles(tris, modeUnlit, pass, nil, mat)
}

// DrawMeshDepth renders all instances into the depth buffer only. Used as
// a depth pre-pass or for shadow-style occluders that write no color.
func (r *Rasterizer) DrawMeshDepth(mesh MeshSource, instances *shading.InstanceBuffer) {
	pass := r.camera.PassData()
	tris := r.setupTriangles(mesh, pass, instances)
	r.shadeTriangles(tris, modeDepth, pass, nil, nil)
}

// setupTriangles runs the vertex stage for every instance and face, then
// projects, culls and clips to screen bounds. The surviving triangles are
// what the parallel fragment loop consumes.
func (r *Rasterizer) setupTriangles(mesh MeshSource, pass *shading.PassData, instances *shading.InstanceBuffer) []screenTriangle {
	width, height := r.Width(), r.Height()
	tris := make([]screenTriangle, 0, mesh.TriangleCount()*instances.Len())

	for id := 0; id < instances.Len(); id++ {
		for i := 0; i < mesh.TriangleCount(); i++ {
			face := mesh.Face(i)

			var sv [3]screenVertex
			allBehind := true
			anyBehind := false

			for j := range 3 {
				out := shading.TransformVertex(pass, instances, id, mesh.Vertex(face[j]))
				clip := out.ClipPos

				if clip.W > 0 {
					allBehind = false
				} else {
					// TODO: clip against the near plane instead of
					// dropping the whole triangle.
					anyBehind = true
				}

				if clip.W != 0 {
					sv[j].X = clip.X / clip.W
					sv[j].Y = clip.Y / clip.W
					sv[j].Z = clip.Z / clip.W
					sv[j].invW = 1 / clip.W
				}

				// NDC to screen coordinates
				sv[j].X = (sv[j].X + 1) * 0.5 * float64(width)
				sv[j].Y = (1 - sv[j].Y) * 0.5 * float64(height) // Y flipped
				sv[j].out = out
			}

			if allBehind || anyBehind {
				continue
			}

			// Backface culling (using screen-space winding). Front faces
			// wind counter-clockwise in world space, which the screen-space
			// Y flip turns into a negative cross.
			edge1 := math3d.V2(sv[1].X-sv[0].X, sv[1].Y-sv[0].Y)
			edge2 := math3d.V2(sv[2].X-sv[0].X, sv[2].Y-sv[0].Y)
			cross := edge1.X*edge2.Y - edge1.Y*edge2.X
			if cross > 0 && !r.DisableBackfaceCulling {
				continue
			}

			tri := screenTriangle{
				v:    sv,
				minX: int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X)))),
				maxX: int(math.Min(float64(width-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X)))),
				minY: int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y)))),
				maxY: int(math.Min(float64(height-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y)))),
			}
			if tri.minX > tri.maxX || tri.minY > tri.maxY {
				continue
			}
			tris = append(tris, tri)
		}
	}

	return tris
}

// shadeTriangles runs the fragment loop over a batch of triangles. Workers
// take interleaved rows, so depth and color writes never race: a pixel
// belongs to exactly one worker for the whole batch.
func (r *Rasterizer) shadeTriangles(tris []screenTriangle, mode drawMode, pass *shading.PassData, lights *shading.LightData, mat *shading.Material) {
	if len(tris) == 0 {
		return
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > r.Height() {
		workers = r.Height()
	}
	if workers <= 1 {
		r.shadeRows(tris, mode, pass, lights, mat, 0, 1)
		return
	}

	var eg errgroup.Group
	for w := range workers {
		eg.Go(func() error {
			r.shadeRows(tris, mode, pass, lights, mat, w, workers)
			return nil
		})
	}
	// Workers never return errors; the group is used for joining only.
	_ = eg.Wait()
}

// shadeRows shades every row y with y % step == start.
func (r *Rasterizer) shadeRows(tris []screenTriangle, mode drawMode, pass *shading.PassData, lights *shading.LightData, mat *shading.Material, start, step int) {
	width := r.Width()

	for ti := range tris {
		tri := &tris[ti]
		sv := &tri.v

		// First row in the bounding box belonging to this worker.
		y0 := tri.minY + ((start-tri.minY)%step+step)%step

		for y := y0; y <= tri.maxY; y += step {
			rowDepth := r.zbuffer[y*width:]
			for x := tri.minX; x <= tri.maxX; x++ {
				px, py := float64(x)+0.5, float64(y)+0.5

				bc := barycentric(
					sv[0].X, sv[0].Y,
					sv[1].X, sv[1].Y,
					sv[2].X, sv[2].Y,
					px, py,
				)
				if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
					continue
				}

				// Interpolate depth
				z := bc.X*sv[0].Z + bc.Y*sv[1].Z + bc.Z*sv[2].Z
				if z >= rowDepth[x] {
					continue
				}

				if mode == modeDepth {
					rowDepth[x] = z
					continue
				}

				// Perspective-correct attribute interpolation: weight each
				// vertex by bc/w, renormalize by the sum.
				w0 := bc.X * sv[0].invW
				w1 := bc.Y * sv[1].invW
				w2 := bc.Z * sv[2].invW
				oneOverW := w0 + w1 + w2
				if oneOverW == 0 {
					continue
				}
				w0 /= oneOverW
				w1 /= oneOverW
				w2 /= oneOverW

				uv0 := interpVec2(sv[0].out.UV0, sv[1].out.UV0, sv[2].out.UV0, w0, w1, w2)

				if mode == modeUnlit {
					color, ok := shading.ShadeUnlit(mat, uv0)
					if !ok {
						continue
					}
					rowDepth[x] = z
					r.target.Pixels[y*width+x] = color.Vec3()
					continue
				}

				frag := shading.FragmentInput{
					WorldPos: interpVec3(sv[0].out.WorldPos, sv[1].out.WorldPos, sv[2].out.WorldPos, w0, w1, w2),
					Basis:    interpMat3(sv[0].out.Basis, sv[1].out.Basis, sv[2].out.Basis, w0, w1, w2),
					UV0:      uv0,
					UV1:      interpVec2(sv[0].out.UV1, sv[1].out.UV1, sv[2].out.UV1, w0, w1, w2),
				}

				color, ok := shading.ShadeFragment(pass, lights, mat, frag)
				if !ok {
					continue
				}
				rowDepth[x] = z
				r.target.Pixels[y*width+x] = color.Vec3()
			}
		}
	}
}

// barycentric calculates barycentric coordinates for point (px, py) in triangle.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) math3d.Vec3 {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	return math3d.V3(1-u-v, v, u)
}

func interpVec2(a, b, c math3d.Vec2, wa, wb, wc float64) math3d.Vec2 {
	return math3d.V2(
		a.X*wa+b.X*wb+c.X*wc,
		a.Y*wa+b.Y*wb+c.Y*wc,
	)
}

func interpVec3(a, b, c math3d.Vec3, wa, wb, wc float64) math3d.Vec3 {
	return math3d.V3(
		a.X*wa+b.X*wb+c.X*wc,
		a.Y*wa+b.Y*wb+c.Y*wc,
		a.Z*wa+b.Z*wb+c.Z*wc,
	)
}

func interpMat3(a, b, c math3d.Mat3, wa, wb, wc float64) math3d.Mat3 {
	var m math3d.Mat3
	for i := range m {
		m[i] = a[i]*wa + b[i]*wb + c[i]*wc
	}
	return m
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
