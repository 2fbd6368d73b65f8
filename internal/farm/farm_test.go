package farm_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"flux/internal/driver"
	"flux/internal/farm"
)

type fakeFront struct {
	mu    sync.Mutex
	calls []string
	out   map[string]farm.FileOutput
	err   map[string]error
	delay time.Duration
}

func (f *fakeFront) CompileFile(_ context.Context, path, _ string, _ map[string]string) (farm.FileOutput, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	name := filepath.Base(path)
	if err, ok := f.err[name]; ok {
		return farm.FileOutput{}, err
	}
	return f.out[name], nil
}

func TestFarm_FiresModuleCallbacks(t *testing.T) {
	front := &fakeFront{out: map[string]farm.FileOutput{
		"a.fx": {Modules: []farm.CompiledModule{{Name: "A", Binary: []byte("a")}}},
		"b.fx": {Modules: []farm.CompiledModule{
			{Name: "B", Binary: []byte("b")},
			{Name: "B.Helper", Binary: []byte("bh")},
		}},
	}}
	f := farm.New(front, "/proj", 2, nil)

	var mu sync.Mutex
	got := make(map[string]string)
	res := f.Compile(context.Background(), []string{"a.fx", "b.fx"}, driver.CompileOptions{
		EachModule: func(source, module string, _ []byte) {
			mu.Lock()
			got[module] = source
			mu.Unlock()
		},
	})

	if !res.Ok {
		t.Fatalf("expected ok, got %+v", res)
	}
	if len(got) != 3 || got["A"] != "a.fx" || got["B.Helper"] != "b.fx" {
		t.Fatalf("callbacks = %v", got)
	}
}

func TestFarm_CollectsErrorsAndWarnings(t *testing.T) {
	front := &fakeFront{
		out: map[string]farm.FileOutput{
			"ok.fx": {Warnings: []driver.Note{{File: "/proj/ok.fx", Line: 1, Message: "shadowed"}}},
			"bad.fx": {Errors: []driver.Note{{File: "/proj/bad.fx", Line: 2, Message: "syntax error"}},
				Modules: []farm.CompiledModule{{Name: "Bad"}}},
		},
	}
	f := farm.New(front, "/proj", 0, nil)

	var fired []string
	res := f.Compile(context.Background(), []string{"bad.fx", "ok.fx"}, driver.CompileOptions{
		EachModule: func(_, module string, _ []byte) { fired = append(fired, module) },
	})

	if res.Ok {
		t.Fatal("expected failure")
	}
	if len(res.Errors) != 1 || res.Errors[0].Message != "syntax error" {
		t.Fatalf("errors = %v", res.Errors)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	for _, m := range fired {
		if m == "Bad" {
			t.Fatal("module callback must not fire for a failed file")
		}
	}
}

func TestFarm_FrontEndFailureBecomesError(t *testing.T) {
	front := &fakeFront{err: map[string]error{"a.fx": errors.New("front-end crashed")}}
	f := farm.New(front, "/proj", 1, nil)
	res := f.Compile(context.Background(), []string{"a.fx"}, driver.CompileOptions{})
	if res.Ok || len(res.Errors) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Errors[0].File != filepath.Join("/proj", "a.fx") {
		t.Fatalf("error file = %q", res.Errors[0].File)
	}
}

func TestFarm_LongCompilationCallback(t *testing.T) {
	front := &fakeFront{delay: 50 * time.Millisecond, out: map[string]farm.FileOutput{"slow.fx": {}}}
	f := farm.New(front, "/proj", 1, nil)

	var mu sync.Mutex
	var slow []string
	res := f.Compile(context.Background(), []string{"slow.fx"}, driver.CompileOptions{
		LongCompilationThreshold: 5 * time.Millisecond,
		EachLongCompilation: func(source string) {
			mu.Lock()
			slow = append(slow, source)
			mu.Unlock()
		},
	})
	if !res.Ok {
		t.Fatalf("result = %+v", res)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(slow) != 1 || slow[0] != "slow.fx" {
		t.Fatalf("slow = %v", slow)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []driver.Event
}

func (r *recordingSink) OnEvent(ev driver.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func TestFarm_EmitsProgressEvents(t *testing.T) {
	front := &fakeFront{out: map[string]farm.FileOutput{"a.fx": {}}}
	sink := &recordingSink{}
	f := farm.New(front, "/proj", 1, sink)
	f.Compile(context.Background(), []string{"a.fx"}, driver.CompileOptions{})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 2 ||
		sink.events[0].Status != driver.EventCompiling ||
		sink.events[1].Status != driver.EventDone {
		t.Fatalf("events = %v", sink.events)
	}
}

func TestFarm_EmptyInputIsOk(t *testing.T) {
	f := farm.New(&fakeFront{}, "/proj", 0, nil)
	if res := f.Compile(context.Background(), nil, driver.CompileOptions{}); !res.Ok {
		t.Fatalf("result = %+v", res)
	}
}
