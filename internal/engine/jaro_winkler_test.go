package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaroKnownValues(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"martha", "marhta", 0.944444},
		{"dixon", "dicksonx", 0.766667},
		{"jellyfish", "smellyfish", 0.896296},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, Jaro(tc.a, tc.b), 1e-5, "%s/%s", tc.a, tc.b)
	}
}

func TestJaroWinklerKnownValues(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"martha", "marhta", 0.961111},
		{"dixon", "dicksonx", 0.813333},
		{"dwayne", "duane", 0.84},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, JaroWinkler(tc.a, tc.b), 1e-5, "%s/%s", tc.a, tc.b)
	}
}

func TestJaroWinklerEdgeCases(t *testing.T) {
	assert.Equal(t, 1.0, JaroWinkler("", ""))
	assert.Equal(t, 0.0, JaroWinkler("", "abc"))
	assert.Equal(t, 0.0, JaroWinkler("abc", ""))
	assert.Equal(t, 1.0, JaroWinkler("smith", "smith"))
	assert.Equal(t, 0.0, JaroWinkler("abc", "xyz"))
	assert.Equal(t, 1.0, JaroWinkler("ü", "ü"))
}

func TestJaroWinklerSymmetricAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := []rune("abcde ")
	randomString := func() string {
		n := rng.Intn(9)
		out := make([]rune, n)
		for i := range out {
			out[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(out)
	}

	for i := 0; i < 5000; i++ {
		a, b := randomString(), randomString()
		ab, ba := JaroWinkler(a, b), JaroWinkler(b, a)
		if ab != ba {
			t.Fatalf("asymmetric: jw(%q,%q)=%v jw(%q,%q)=%v", a, b, ab, b, a, ba)
		}
		if ab < 0 || ab > 1 {
			t.Fatalf("out of range: jw(%q,%q)=%v", a, b, ab)
		}
		if JaroWinkler(a, a) != 1 {
			t.Fatalf("jw(%q,%q) != 1", a, a)
		}
	}
}
