package track

import "gonum.org/v1/gonum/mat"

// kalmanFilter is a constant-velocity filter over the measurement vector
// [cx, cy, w, h/w] with four paired velocity states.
type kalmanFilter struct {
	f *mat.Dense // state transition (8x8)
	h *mat.Dense // measurement (4x8)
	q *mat.Dense // process noise (8x8)
	r *mat.Dense // measurement noise (4x4)
	p *mat.Dense // state covariance (8x8)
	x *mat.VecDense
}

const (
	stateDim = 8
	measDim  = 4
)

func newKalmanFilter() *kalmanFilter {
	kf := &kalmanFilter{
		f: eye(stateDim, 1),
		h: mat.NewDense(measDim, stateDim, nil),
		q: eye(stateDim, 0.1),
		r: eye(measDim, 1),
		p: eye(stateDim, 10),
		x: mat.NewVecDense(stateDim, nil),
	}
	for i := 0; i < measDim; i++ {
		kf.f.Set(i, i+measDim, 1) // position integrates velocity
		kf.h.Set(i, i, 1)
	}
	return kf
}

func eye(n int, scale float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, scale)
	}
	return m
}

// initialize seeds the state from the first measurement with zero velocity.
func (kf *kalmanFilter) initialize(z []float64) {
	kf.x = mat.NewVecDense(stateDim, nil)
	for i := 0; i < measDim; i++ {
		kf.x.SetVec(i, z[i])
	}
	kf.p = eye(stateDim, 10)
}

// predict advances the state one step and returns the predicted measurement
// components.
func (kf *kalmanFilter) predict() []float64 {
	var x mat.VecDense
	x.MulVec(kf.f, kf.x)
	kf.x = &x

	var fp, fpft mat.Dense
	fp.Mul(kf.f, kf.p)
	fpft.Mul(&fp, kf.f.T())
	fpft.Add(&fpft, kf.q)
	kf.p = &fpft

	out := make([]float64, measDim)
	for i := 0; i < measDim; i++ {
		out[i] = kf.x.AtVec(i)
	}
	return out
}

// update folds a measurement into the state.
func (kf *kalmanFilter) update(z []float64) error {
	// S = H P Hᵀ + R
	var hp, s mat.Dense
	hp.Mul(kf.h, kf.p)
	s.Mul(&hp, kf.h.T())
	s.Add(&s, kf.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return err
	}

	// K = P Hᵀ S⁻¹
	var pht, k mat.Dense
	pht.Mul(kf.p, kf.h.T())
	k.Mul(&pht, &sInv)

	// y = z - H x
	zVec := mat.NewVecDense(measDim, z)
	var hx, y mat.VecDense
	hx.MulVec(kf.h, kf.x)
	y.SubVec(zVec, &hx)

	// x = x + K y
	var ky mat.VecDense
	ky.MulVec(&k, &y)
	kf.x.AddVec(kf.x, &ky)

	// P = (I - K H) P
	var kh mat.Dense
	kh.Mul(&k, kf.h)
	ikh := eye(stateDim, 1)
	ikh.Sub(ikh, &kh)
	var p mat.Dense
	p.Mul(ikh, kf.p)
	kf.p = &p
	return nil
}
