package router

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetDurEnv_DefaultAndValidInvalid(t *testing.T) {
	t.Setenv("ROUTER_TEST_TIMEOUT", "")
	require.Equal(t, 42_000_000_000, int(getDurEnv("ROUTER_TEST_TIMEOUT", 42_000_000_000)))

	t.Setenv("ROUTER_TEST_TIMEOUT", "150ms")
	require.Equal(t, 150_000_000, int(getDurEnv("ROUTER_TEST_TIMEOUT", 42_000_000_000)))

	t.Setenv("ROUTER_TEST_TIMEOUT", "abc")
	require.Equal(t, 42_000_000_000, int(getDurEnv("ROUTER_TEST_TIMEOUT", 42_000_000_000)))

	t.Setenv("ROUTER_TEST_TIMEOUT", "0s")
	require.Equal(t, 42_000_000_000, int(getDurEnv("ROUTER_TEST_TIMEOUT", 42_000_000_000)))
}

func TestDispatch_MethodAndBasics(t *testing.T) {
	r := Dispatch("POST", "/")
	require.Equal(t, 400, r.Status)
	require.Equal(t, "method", r.Err.Code)

	r = Dispatch("GET", "/")
	require.Equal(t, 200, r.Status)
	require.Equal(t, "hola mundo\n", r.Body)
}

func TestDispatch_BasicRoutes(t *testing.T) {
	for _, target := range []string{
		"/help", "/timestamp", "/reverse?text=abc", "/toupper?text=abc",
		"/hash?text=a", "/random?count=1&min=0&max=0", "/fibonacci?num=5",
	} {
		require.Equalf(t, 200, Dispatch("GET", target).Status, "target=%s", target)
	}
	require.Equal(t, 404, Dispatch("GET", "/no-such-route").Status)
}

// Without InitReactor having run in this package's test process, the
// reactor-introspection routes must degrade gracefully rather than panic.
func TestDispatch_StatusAndReactions_NoReactor(t *testing.T) {
	for _, target := range []string{"/status", "/reactions", "/metrics"} {
		r := Dispatch("GET", target)
		require.Equalf(t, 200, r.Status, "target=%s", target)
		require.True(t, r.JSON)
		var obj any
		require.NoError(t, json.Unmarshal([]byte(r.Body), &obj))
	}
}

func TestDispatch_CPURoutes(t *testing.T) {
	for _, target := range []string{
		"/isprime?n=17",
		"/factor?n=12",
		"/pi?digits=5",
		"/mandelbrot?width=4&height=4&max_iter=5",
	} {
		require.Equalf(t, 200, Dispatch("GET", target).Status, "target=%s", target)
	}
}

func TestDispatch_CPURoutes_RejectBadParams(t *testing.T) {
	require.Equal(t, 400, Dispatch("GET", "/isprime?n=-1").Status)
	require.Equal(t, 400, Dispatch("GET", "/factor?n=1").Status)
	require.Equal(t, 400, Dispatch("GET", "/pi?digits=0").Status)
	require.Equal(t, 400, Dispatch("GET", "/mandelbrot?width=0&height=4&max_iter=5").Status)
}
