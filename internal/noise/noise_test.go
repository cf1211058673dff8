package noise

import "testing"

func TestPrimitiveDeterministic(t *testing.T) {
	for _, kind := range []Kind{KindSimplex, KindPerlin} {
		p := NewPrimitive(kind, 42)
		a := p.Eval3(1.25, -3.5, 7.0)
		b := p.Eval3(1.25, -3.5, 7.0)
		if a != b {
			t.Errorf("kind %v not deterministic: %v != %v", kind, a, b)
		}
	}
}

func TestPrimitiveRange(t *testing.T) {
	for _, kind := range []Kind{KindSimplex, KindPerlin} {
		p := NewPrimitive(kind, 7)
		for x := -5.0; x <= 5.0; x += 0.37 {
			v := p.Eval3(x, x*0.5, -x)
			if v < -1.0001 || v > 1.0001 {
				t.Errorf("kind %v: Eval3(%v) = %v out of [-1,1]", kind, x, v)
			}
		}
	}
}

func TestPrimitiveDifferentSeeds(t *testing.T) {
	a := NewPrimitive(KindSimplex, 1).Eval3(3, 4, 5)
	b := NewPrimitive(KindSimplex, 2).Eval3(3, 4, 5)
	if a == b {
		t.Errorf("expected different seeds to (almost certainly) differ, got %v == %v", a, b)
	}
}

func TestLayerDisabledIsZero(t *testing.T) {
	l := NewLayer(KindSimplex, 1)
	l.Enabled = false
	if v := l.Evaluate(1, 2, 3, 0); v != 0 {
		t.Errorf("disabled layer should return 0, got %v", v)
	}
}

func TestLayerInvert(t *testing.T) {
	a := NewLayer(KindSimplex, 1)
	a.Octaves = 1
	b := NewLayer(KindSimplex, 1)
	b.Octaves = 1
	b.Invert = true

	va := a.Evaluate(1.1, 2.2, 3.3, 0)
	vb := b.Evaluate(1.1, 2.2, 3.3, 0)
	if va != -vb {
		t.Errorf("invert should negate pre-floor value: va=%v vb=%v", va, vb)
	}
}

func TestLayerFloorClampsToZero(t *testing.T) {
	l := NewLayer(KindSimplex, 1)
	l.UseFloor = true
	l.FloorValue = 10 // raw noise is bounded in [-1,1], so always below this
	if v := l.Evaluate(0.1, 0.2, 0.3, 0); v < 0 {
		t.Errorf("floored output must never be negative, got %v", v)
	}
}

func TestLayerFirstLayerMaskGating(t *testing.T) {
	l := NewLayer(KindSimplex, 1)
	l.UseFirstLayerMask = true

	unmasked := l.Evaluate(0.5, 0.5, 0.5, 0) // firstLayerValue <= 0: no mask applied
	masked := l.Evaluate(0.5, 0.5, 0.5, 2.0)

	if masked == unmasked && masked != 0 {
		t.Errorf("mask should only apply when firstLayerValue > 0")
	}
}

func TestEvaluateStackDeterministic(t *testing.T) {
	layers := []*Layer{NewLayer(KindSimplex, 1), NewLayer(KindPerlin, 2)}
	a := EvaluateStack(layers, 10, 20, 30)
	b := EvaluateStack(layers, 10, 20, 30)
	if a != b {
		t.Errorf("EvaluateStack not deterministic: %v != %v", a, b)
	}
}
