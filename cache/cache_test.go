package cache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/ksd-co/rule-engine-postgres/dsl/dslref"
	"github.com/ksd-co/rule-engine-postgres/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFingerprint(t *testing.T, source string) (dsl.RuleProgram, dsl.Fingerprint) {
	t.Helper()
	prog, err := dslref.Parse(source)
	require.NoError(t, err)
	fp, err := dsl.ComputeFingerprint(prog)
	require.NoError(t, err)
	return prog, fp
}

func TestAcquireMissThenHit(t *testing.T) {
	c := New(10)
	prog, fp := mustFingerprint(t, `rule "r" when Order.total > 0 then assign Order.seen = true;`)

	var calls int32
	compile := func() (*kernel.CompiledProgram, error) {
		atomic.AddInt32(&calls, 1)
		return kernel.Compile(prog, nil)
	}

	p1, release1, err := c.Acquire(fp, compile)
	require.NoError(t, err)
	release1()

	p2, release2, err := c.Acquire(fp, compile)
	require.NoError(t, err)
	release2()

	assert.Same(t, p1, p2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestAcquireConcurrentCallersCompileOnce(t *testing.T) {
	c := New(10)
	prog, fp := mustFingerprint(t, `rule "r" when Order.total > 0 then assign Order.seen = true;`)

	var calls int32
	compile := func() (*kernel.CompiledProgram, error) {
		atomic.AddInt32(&calls, 1)
		return kernel.Compile(prog, nil)
	}

	const n = 50
	var wg sync.WaitGroup
	releases := make([]ReleaseFunc, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			_, release, err := c.Acquire(fp, compile)
			require.NoError(t, err)
			releases[i] = release
		}()
	}
	wg.Wait()

	for _, r := range releases {
		r()
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCompileFailureIsNotCached(t *testing.T) {
	c := New(10)
	_, fp := mustFingerprint(t, `rule "r" when Order.total > 0 then assign Order.seen = true;`)

	boom := assert.AnError
	var calls int32
	failing := func() (*kernel.CompiledProgram, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	}

	_, _, err := c.Acquire(fp, failing)
	assert.ErrorIs(t, err, boom)

	_, _, err = c.Acquire(fp, failing)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "a failed compile must never be served from cache")
}

func TestEvictionNeverDropsAnEntryOnLoan(t *testing.T) {
	c := New(1)

	_, fpA := mustFingerprint(t, `rule "a" when Order.total > 0 then assign Order.seen = true;`)
	progB, fpB := mustFingerprint(t, `rule "b" when Order.total > 1 then assign Order.seen = true;`)

	compileFor := func(p dsl.RuleProgram) CompileFunc {
		return func() (*kernel.CompiledProgram, error) { return kernel.Compile(p, nil) }
	}

	progA, _ := dslref.Parse(`rule "a" when Order.total > 0 then assign Order.seen = true;`)
	held, releaseA, err := c.Acquire(fpA, compileFor(progA))
	require.NoError(t, err)
	require.NotNil(t, held)

	// Capacity is 1: acquiring fpB forces the LRU to want to evict fpA, but
	// fpA is still on loan (releaseA has not been called yet).
	_, releaseB, err := c.Acquire(fpB, compileFor(progB))
	require.NoError(t, err)

	stillHeld, releaseAAgain, err := c.Acquire(fpA, compileFor(progA))
	require.NoError(t, err)
	assert.Same(t, held, stillHeld, "an in-use entry must still be retrievable after a capacity-driven eviction attempt")

	releaseA()
	releaseAAgain()
	releaseB()
}

func TestClearForcesRemovalEvenWhenOnLoan(t *testing.T) {
	c := New(10)
	prog, fp := mustFingerprint(t, `rule "r" when Order.total > 0 then assign Order.seen = true;`)
	compile := func() (*kernel.CompiledProgram, error) { return kernel.Compile(prog, nil) }

	_, release, err := c.Acquire(fp, compile)
	require.NoError(t, err)
	defer release()

	c.Clear()
	assert.Equal(t, 0, c.Stats().Size)
}

func TestEvictSpecificFingerprint(t *testing.T) {
	c := New(10)
	prog, fp := mustFingerprint(t, `rule "r" when Order.total > 0 then assign Order.seen = true;`)

	var calls int32
	compile := func() (*kernel.CompiledProgram, error) {
		atomic.AddInt32(&calls, 1)
		return kernel.Compile(prog, nil)
	}

	_, release, err := c.Acquire(fp, compile)
	require.NoError(t, err)
	release()

	c.Evict(fp)

	_, release2, err := c.Acquire(fp, compile)
	require.NoError(t, err)
	release2()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "evicting must force a recompile on the next Acquire")
}
