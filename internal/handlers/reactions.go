// Package handlers' reaction probes: the four CPU-bound bodies the demo
// program runs as reactions (internal/demoprogram), exposed a second time
// as synchronous diagnostic routes so a single curl can exercise the exact
// same code the reactor schedules. Both paths go through the *Ctx variants
// below, so the work done under a worker and the work done under /isprime
// never drift apart.
//
// Each handler honors ctx cancellation with amortized checks rather than
// rolling its own timeout: the router wraps diagnostic calls in
// context.WithTimeout, and demoprogram passes context.Background() since
// its reactions run to completion once scheduled.
package handlers

import (
	"context"
	"encoding/json"
	"math"
	"math/big"
	"math/cmplx"
	"strconv"
	"time"

	"reactorsched/internal/resp"
)

// IsPrimeJSONCtx tests primality of n using either trial division or a
// deterministic 64-bit Miller-Rabin pass, selected by method=.
func IsPrimeJSONCtx(ctx context.Context, params map[string]string) resp.Result {
	n, err := strconv.ParseInt(params["n"], 10, 64)
	if err != nil || n < 0 {
		return resp.BadReq("n", "n must be integer >= 0")
	}

	method := params["method"]
	if method == "" {
		method = "division"
	}
	if method != "division" && method != "miller-rabin" {
		return resp.BadReq("method", "use method=division|miller-rabin")
	}

	start := time.Now()
	type outT struct {
		N       int64  `json:"n"`
		IsPrime bool   `json:"is_prime"`
		Method  string `json:"method"`
		Elapsed int64  `json:"elapsed_ms"`
	}
	out := outT{N: n, Method: method}

	switch method {
	case "division":
		out.IsPrime, err = isPrimeByDivisionCtx(ctx, n)
	case "miller-rabin":
		out.IsPrime = millerRabin64Ctx(ctx, uint64(n))
		err = ctx.Err()
	}
	if err != nil {
		return resp.Unavail("canceled", "job canceled")
	}

	out.Elapsed = time.Since(start).Milliseconds()
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

func isPrimeByDivisionCtx(ctx context.Context, n int64) (bool, error) {
	switch {
	case n < 2:
		return false, nil
	case n == 2 || n == 3:
		return true, nil
	case n%2 == 0:
		return false, nil
	}
	limit := int64(math.Sqrt(float64(n)))
	for d := int64(3); d <= limit; d += 2 {
		if d&1023 == 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			default:
			}
		}
		if n%d == 0 {
			return false, nil
		}
	}
	return true, nil
}

// millerRabin64Ctx runs deterministic Miller-Rabin against witnesses known
// to be exhaustive for every uint64, honoring cancellation between rounds.
func millerRabin64Ctx(ctx context.Context, n uint64) bool {
	if n < 2 {
		return false
	}
	for _, p := range [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37} {
		if n == p {
			return true
		}
		if n%p == 0 {
			return false
		}
	}

	r := 0
	d := n - 1
	for d&1 == 0 {
		d >>= 1
		r++
	}

	nBI := new(big.Int).SetUint64(n)
	dBI := new(big.Int).SetUint64(d)
	nMinus1 := new(big.Int).Sub(nBI, big.NewInt(1))

	for i, a := range [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37} {
		if i&1 == 0 {
			select {
			case <-ctx.Done():
				return false
			default:
			}
		}
		if a%n == 0 {
			continue
		}
		x := new(big.Int).Exp(new(big.Int).SetUint64(a), dBI, nBI)
		if x.Sign() == 0 || x.Cmp(big.NewInt(1)) == 0 || x.Cmp(nMinus1) == 0 {
			continue
		}
		composite := true
		for j := 1; j < r; j++ {
			select {
			case <-ctx.Done():
				return false
			default:
			}
			x.Mul(x, x).Mod(x, nBI)
			if x.Cmp(nMinus1) == 0 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}

// FactorJSONCtx factors n >= 2 by trial division, reporting each prime and
// its multiplicity.
func FactorJSONCtx(ctx context.Context, params map[string]string) resp.Result {
	n, err := strconv.ParseInt(params["n"], 10, 64)
	if err != nil || n < 2 {
		return resp.BadReq("n", "n must be integer >= 2")
	}
	start := time.Now()
	original := n

	var factors [][2]int64
	if n%2 == 0 {
		c := int64(0)
		for n%2 == 0 {
			n /= 2
			c++
		}
		factors = append(factors, [2]int64{2, c})
	}

	for d := int64(3); d <= n/d; d += 2 {
		if d&1023 == 0 {
			select {
			case <-ctx.Done():
				return resp.Unavail("canceled", "job canceled")
			default:
			}
		}
		if n%d != 0 {
			continue
		}
		c := int64(0)
		for n%d == 0 {
			n /= d
			c++
			if c&1023 == 0 {
				select {
				case <-ctx.Done():
					return resp.Unavail("canceled", "job canceled")
				default:
				}
			}
		}
		factors = append(factors, [2]int64{d, c})
	}
	if n > 1 {
		factors = append(factors, [2]int64{n, 1})
	}

	type outT struct {
		N         int64      `json:"n"`
		Factors   [][2]int64 `json:"factors"`
		ElapsedMS int64      `json:"elapsed_ms"`
	}
	b, _ := json.Marshal(outT{N: original, Factors: factors, ElapsedMS: time.Since(start).Milliseconds()})
	return resp.JSONOK(string(b))
}

// PiJSONCtx emits d decimal digits of pi via the spigot (Rabinowitz-Wagon,
// base 10) algorithm. It favors a bounded-memory streaming digit generator
// over an arbitrary-precision series since the reactor's pi reaction only
// ever asks for a small, fixed digit count.
func PiJSONCtx(ctx context.Context, params map[string]string) resp.Result {
	const maxDigits = 10000

	d, err := strconv.Atoi(params["digits"])
	if err != nil || d < 1 {
		return resp.BadReq("digits", "digits must be integer >= 1")
	}
	if d > maxDigits {
		d = maxDigits
	}

	start := time.Now()
	s, iters, truncated := piSpigotCtx(ctx, d)

	type outT struct {
		Digits     int    `json:"digits"`
		Method     string `json:"method"`
		Iterations int    `json:"iterations"`
		Truncated  bool   `json:"truncated"`
		Pi         string `json:"pi"`
		Elapsed    int64  `json:"elapsed_ms"`
	}
	out := outT{Digits: d, Method: "spigot", Iterations: iters, Truncated: truncated, Pi: s, Elapsed: time.Since(start).Milliseconds()}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}

// piSpigotCtx streams n decimal digits of pi one at a time, never holding
// more state than the digit buffer itself. Returns the digits emitted so
// far, the internal step count, and whether ctx expired before completion.
func piSpigotCtx(ctx context.Context, n int) (string, int, bool) {
	if n <= 0 {
		return "3", 0, false
	}

	size := (10*n)/3 + 1
	a := make([]int, size)
	for i := range a {
		a[i] = 2
	}

	const (
		stateDropInt = iota
		stateFirstPredigit
		stateStreaming
	)
	state := stateDropInt

	nines := 0
	predigit := 0
	iters := 0

	out := make([]byte, 0, n+2)
	out = append(out, '3', '.')

	for digits := 0; digits < n; {
		if digits&63 == 0 {
			select {
			case <-ctx.Done():
				if state == stateStreaming {
					out = append(out, byte(predigit)+'0')
					for ; nines > 0 && len(out) < 2+n; nines-- {
						out = append(out, '9')
					}
				}
				if len(out) > 2+n {
					out = out[:2+n]
				}
				return string(out), iters, true
			default:
			}
		}

		carry := 0
		for i := size - 1; i > 0; i-- {
			x := a[i]*10 + carry*(i+1)
			den := 2*i + 1
			a[i] = x % den
			carry = x / den
			iters++
		}
		x0 := a[0]*10 + carry
		a[0] = x0 % 10
		q := x0 / 10

		switch state {
		case stateDropInt:
			state = stateFirstPredigit
		case stateFirstPredigit:
			predigit = q
			state = stateStreaming
		case stateStreaming:
			switch {
			case q == 9:
				nines++
			case q == 10:
				out = append(out, byte(predigit+1)+'0')
				for ; nines > 0; nines-- {
					out = append(out, '0')
				}
				predigit = 0
				digits++
			default:
				out = append(out, byte(predigit)+'0')
				for ; nines > 0; nines-- {
					out = append(out, '9')
				}
				predigit = q
				digits++
			}
		}
	}

	if len(out) < 2+n {
		out = append(out, byte(predigit)+'0')
	}
	if len(out) > 2+n {
		out = out[:2+n]
	}
	return string(out), iters, false
}

// MandelbrotJSONCtx renders an escape-iteration-count grid over the
// window [-2.5,1.0] x [-1.0,1.0], capped to keep responses bounded.
func MandelbrotJSONCtx(ctx context.Context, params map[string]string) resp.Result {
	w, errW := strconv.Atoi(params["width"])
	h, errH := strconv.Atoi(params["height"])
	it, errI := strconv.Atoi(params["max_iter"])
	if errW != nil || errH != nil || errI != nil {
		return resp.BadReq("params", "width,height,max_iter must be integers")
	}
	if w <= 0 || h <= 0 || it <= 0 {
		return resp.BadReq("params", "width,height,max_iter must be > 0")
	}
	if w > 512 {
		w = 512
	}
	if h > 512 {
		h = 512
	}
	if it > 2000 {
		it = 2000
	}

	start := time.Now()
	const minRe, maxRe = -2.5, 1.0
	const minIm, maxIm = -1.0, 1.0

	img := make([][]int, h)
	for y := 0; y < h; y++ {
		if y&63 == 0 {
			select {
			case <-ctx.Done():
				return resp.Unavail("canceled", "job canceled")
			default:
			}
		}
		row := make([]int, w)
		ci := minIm + (maxIm-minIm)*float64(y)/float64(h-1)
		for x := 0; x < w; x++ {
			cr := minRe + (maxRe-minRe)*float64(x)/float64(w-1)
			c := complex(cr, ci)
			z := complex(0, 0)
			iter := 0
			for iter = 0; iter < it; iter++ {
				if iter&255 == 0 {
					select {
					case <-ctx.Done():
						return resp.Unavail("canceled", "job canceled")
					default:
					}
				}
				z = z*z + c
				if cmplx.Abs(z) > 2.0 {
					break
				}
			}
			row[x] = iter
		}
		img[y] = row
	}

	out := map[string]any{
		"width":      w,
		"height":     h,
		"max_iter":   it,
		"map":        img,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}
	b, _ := json.Marshal(out)
	return resp.JSONOK(string(b))
}
