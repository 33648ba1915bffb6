package integration

import "testing"

// Given runs setup in a "given" subtest and hands the resulting workspace to
// test. The server behind it is shut down when the subtest ends, failed or not.
func Given(name string, t *testing.T, setup func(*testing.T) *LSPTestContext, test func(*testing.T, *LSPTestContext)) bool {
	return t.Run("given "+name, func(t *testing.T) {
		tc := setup(t)
		t.Cleanup(tc.Shutdown)
		test(t, tc)
	})
}

// Then names an assertion group.
func Then(name string, t *testing.T, fn func(*testing.T)) bool {
	return t.Run("then "+name, fn)
}
