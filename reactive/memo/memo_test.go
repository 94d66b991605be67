package memo_test

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/on-the-ground/react_ive_go/reactive/cell"
	"github.com/on-the-ground/react_ive_go/reactive/memo"
	"github.com/on-the-ground/react_ive_go/reactive/watch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperty_FirstReadIsLazyAndIdempotent(t *testing.T) {
	ctx := context.Background()

	type rect struct {
		w, h *cell.Cell[int]
	}

	calls := 0
	area := memo.MustRegister("area", func(ctx context.Context, r *rect) *int {
		calls++
		v := r.w.Get(ctx) * r.h.Get(ctx)
		return &v
	})

	r := &rect{w: cell.New("w", 3), h: cell.New("h", 4)}
	require.Equal(t, 0, calls, "declaration must not run the getter")

	first := area.Get(ctx, r)
	require.Equal(t, 12, *first)
	require.Equal(t, 1, calls)

	// repeated reads return the identical value without re-running
	for i := 0; i < 5; i++ {
		assert.Same(t, first, area.Get(ctx, r))
	}
	assert.Equal(t, 1, calls)
}

func TestProperty_RecomputesOnDependencyChange(t *testing.T) {
	ctx := context.Background()

	type account struct {
		balance *cell.Cell[int]
	}

	calls := 0
	status := memo.MustRegister("status", func(ctx context.Context, a *account) string {
		calls++
		if a.balance.Get(ctx) < 0 {
			return "overdrawn"
		}
		return "ok"
	})

	a := &account{balance: cell.New("balance", 100)}
	require.Equal(t, "ok", status.Get(ctx, a))
	require.Equal(t, 1, calls)

	a.balance.Set(ctx, -5)
	require.Equal(t, "overdrawn", status.Get(ctx, a))
	require.Equal(t, 2, calls)

	// stable again until the next write
	require.Equal(t, "overdrawn", status.Get(ctx, a))
	assert.Equal(t, 2, calls)
}

func TestProperty_InstancesAreIsolated(t *testing.T) {
	ctx := context.Background()

	type counter struct {
		n *cell.Cell[int]
	}

	calls := 0
	double := memo.MustRegister("double", func(ctx context.Context, c *counter) int {
		calls++
		return c.n.Get(ctx) * 2
	})

	a := &counter{n: cell.New("n", 1)}
	b := &counter{n: cell.New("n", 100)}

	// 1. each instance computes its own value
	require.Equal(t, 2, double.Get(ctx, a))
	require.Equal(t, 200, double.Get(ctx, b))
	require.Equal(t, 2, calls)

	// 2. invalidating a must not touch b
	a.n.Set(ctx, 5)
	require.Equal(t, 10, double.Get(ctx, a))
	require.Equal(t, 200, double.Get(ctx, b))
	assert.Equal(t, 3, calls)
}

func TestProperty_FullName(t *testing.T) {
	ctx := context.Background()

	type person struct {
		firstName *cell.Cell[string]
		lastName  *cell.Cell[string]
	}

	fullName := memo.MustRegister("fullName", func(ctx context.Context, p *person) string {
		return p.firstName.Get(ctx) + " " + p.lastName.Get(ctx)
	})

	jen := &person{
		firstName: cell.New("firstName", "Jen"),
		lastName:  cell.New("lastName", "Weber"),
	}
	require.Equal(t, "Jen Weber", fullName.Get(ctx, jen))

	jen.firstName.Set(ctx, "Jennifer")
	assert.Equal(t, "Jennifer Weber", fullName.Get(ctx, jen))
}

func TestProperty_UntrackedFieldsMakeConstants(t *testing.T) {
	ctx := context.Background()

	type config struct {
		hostname string
	}

	unrelated := cell.New("unrelated", 0)
	calls := 0
	banner := memo.MustRegister("banner", func(ctx context.Context, c *config) string {
		calls++
		return "serving on " + c.hostname
	})

	c := &config{hostname: "localhost"}
	require.Equal(t, "serving on localhost", banner.Get(ctx, c))

	// the getter consumed nothing tracked, so nothing can invalidate it
	unrelated.Set(ctx, 1)
	c.hostname = "elsewhere"
	assert.Equal(t, "serving on localhost", banner.Get(ctx, c))
	assert.Equal(t, 1, calls)
}

func TestProperty_ComposesWithOtherProperties(t *testing.T) {
	ctx := context.Background()

	type person struct {
		firstName *cell.Cell[string]
		lastName  *cell.Cell[string]
	}

	nameCalls, greetCalls := 0, 0
	fullName := memo.MustRegister("composed/fullName", func(ctx context.Context, p *person) string {
		nameCalls++
		return p.firstName.Get(ctx) + " " + p.lastName.Get(ctx)
	})
	greeting := memo.MustRegister("composed/greeting", func(ctx context.Context, p *person) string {
		greetCalls++
		return "Hello, " + fullName.Get(ctx, p) + "!"
	})

	p := &person{
		firstName: cell.New("firstName", "Ada"),
		lastName:  cell.New("lastName", "Lovelace"),
	}

	require.Equal(t, "Hello, Ada Lovelace!", greeting.Get(ctx, p))
	require.Equal(t, 1, nameCalls)
	require.Equal(t, 1, greetCalls)

	// the outer property inherited the inner one's dependencies
	p.lastName.Set(ctx, "Byron")
	require.Equal(t, "Hello, Ada Byron!", greeting.Get(ctx, p))
	assert.Equal(t, 2, nameCalls)
	assert.Equal(t, 2, greetCalls)
}

func TestProperty_CachesDieWithInstances(t *testing.T) {
	ctx := context.Background()

	type tenant struct {
		id int
	}

	var calls atomic.Int64
	tenantId := memo.MustRegister("tenantId", func(_ context.Context, tn *tenant) int {
		calls.Add(1)
		return tn.id
	})

	kept := &tenant{id: 0}
	require.Equal(t, 0, tenantId.Get(ctx, kept))
	require.Equal(t, int64(1), calls.Load())

	func() {
		insts := make([]*tenant, 0, 16)
		for i := 1; i <= 16; i++ {
			tn := &tenant{id: i}
			insts = append(insts, tn)
			require.Equal(t, i, tenantId.Get(ctx, tn))
		}
		require.Equal(t, 17, tenantId.Tracked())
		runtime.KeepAlive(insts)
	}()

	// the transient instances are unreachable; their caches must follow
	require.Eventually(t, func() bool {
		runtime.GC()
		return tenantId.Tracked() == 1
	}, 5*time.Second, 10*time.Millisecond)

	// the survivor keeps its cache, a newborn starts from scratch
	require.Equal(t, 0, tenantId.Get(ctx, kept))
	require.Equal(t, int64(17), calls.Load())

	reborn := &tenant{id: 0}
	require.Equal(t, 0, tenantId.Get(ctx, reborn))
	assert.Equal(t, int64(18), calls.Load(), "a new lifetime never reuses a dead cache")

	runtime.KeepAlive(kept)
	runtime.KeepAlive(reborn)
}

func TestProperty_EmitsInstallAndRecomputeEvents(t *testing.T) {
	ctx := context.Background()

	events := make(chan watch.Event, 16)
	ctx, endOfWatch := watch.WithHandler(
		ctx,
		watch.NewConfig(16, 1, 0),
		func(ctx context.Context, ev watch.Event) {
			events <- ev
		},
	)
	defer endOfWatch()

	type doc struct {
		body *cell.Cell[string]
	}

	length := memo.MustRegister("doc/length", func(ctx context.Context, d *doc) int {
		return len(d.body.Get(ctx))
	})

	d := &doc{body: cell.New("doc/body", "hi")}

	// 1. first read installs the cache, then computes
	require.Equal(t, 2, length.Get(ctx, d))
	expectEvent(t, events, "doc/length", watch.OpInstalled)
	expectEvent(t, events, "doc/length", watch.OpRecomputed)

	// 2. a write dirties, the next read recomputes
	d.body.Set(ctx, "hello")
	require.Equal(t, 5, length.Get(ctx, d))
	expectEvent(t, events, "doc/body", watch.OpDirtied)
	expectEvent(t, events, "doc/length", watch.OpRecomputed)

	// 3. a cached read emits nothing
	require.Equal(t, 5, length.Get(ctx, d))
	select {
	case ev := <-events:
		t.Fatalf("unexpected event for a cached read: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func expectEvent(t *testing.T, events <-chan watch.Event, key string, op watch.Op) {
	t.Helper()
	select {
	case ev := <-events:
		require.Equal(t, key, ev.Key)
		require.Equal(t, op, ev.Op)
	case <-time.After(1 * time.Second):
		t.Fatalf("expected %s event for %q not received", op, key)
	}
}

func TestProperty_GetPanicsOnNilInstance(t *testing.T) {
	ctx := context.Background()

	type thing struct{ _ int }
	prop := memo.MustRegister("thing/nil", func(_ context.Context, th *thing) int { return 0 })

	require.Panics(t, func() { prop.Get(ctx, nil) })
}

func TestProperty_GetterPanicsAreNotCached(t *testing.T) {
	ctx := context.Background()

	type ratio struct {
		num, den *cell.Cell[int]
	}

	calls := 0
	value := memo.MustRegister("ratio/value", func(ctx context.Context, r *ratio) int {
		calls++
		return r.num.Get(ctx) / r.den.Get(ctx)
	})

	r := &ratio{num: cell.New("num", 10), den: cell.New("den", 0)}

	require.Panics(t, func() { value.Get(ctx, r) })
	require.Panics(t, func() { value.Get(ctx, r) })
	require.Equal(t, 2, calls, "each read retries, nothing caches a panic")

	r.den.Set(ctx, 5)
	assert.Equal(t, 2, value.Get(ctx, r))
	assert.Equal(t, 3, calls)
}

func TestProperty_ConcurrentReadsAcrossInstances(t *testing.T) {
	ctx := context.Background()

	type job struct {
		cost *cell.Cell[int]
	}

	var calls atomic.Int64
	price := memo.MustRegister("job/price", func(ctx context.Context, j *job) int {
		calls.Add(1)
		return j.cost.Get(ctx) * 3
	})

	numJobs := 100
	jobs := make([]*job, numJobs)
	for i := range jobs {
		jobs[i] = &job{cost: cell.New(fmt.Sprintf("cost%d", i), i)}
	}

	var wg sync.WaitGroup
	wg.Add(numJobs)
	for i := 0; i < numJobs; i++ {
		go func(i int) {
			defer wg.Done()
			j := jobs[i]
			for k := 0; k < 10; k++ {
				if got := price.Get(ctx, j); got != i*3 {
					t.Errorf("job %d: got %d, want %d", i, got, i*3)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(numJobs), calls.Load(), "one computation per instance")
	assert.Equal(t, numJobs, price.Tracked())

	runtime.KeepAlive(jobs)
}
