package wordcat

import "testing"

func TestCreate(t *testing.T) {
	app := NewApplication()
	res := mustApply(t, app, Entry{Method: MethodCreate})
	if !res.Result || res.Value == "" {
		t.Fatalf("expected create to succeed with an instance id, got %+v", res)
	}
}

func TestDelete(t *testing.T) {
	app := NewApplication()
	id := create(t, app)
	res := mustApply(t, app, Entry{Method: MethodDelete, InstanceId: id})
	if !res.Result {
		t.Fatalf("expected delete to succeed")
	}
	res = mustApply(t, app, Entry{Method: MethodGet, InstanceId: id})
	if res.Result {
		t.Fatalf("expected get on deleted instance to fail")
	}
}

func TestAppendAccumulatesWords(t *testing.T) {
	app := NewApplication()
	id := create(t, app)

	res := mustApply(t, app, Entry{Method: MethodAppend, InstanceId: id, Word: "the"})
	if !res.Result || res.Value != "the" {
		t.Fatalf("expected %q, got %+v", "the", res)
	}

	res = mustApply(t, app, Entry{Method: MethodAppend, InstanceId: id, Word: "quick"})
	if !res.Result || res.Value != "the quick" {
		t.Fatalf("expected %q, got %+v", "the quick", res)
	}

	res = mustApply(t, app, Entry{Method: MethodAppend, InstanceId: id, Word: "fox"})
	if !res.Result || res.Value != "the quick fox" {
		t.Fatalf("expected %q, got %+v", "the quick fox", res)
	}
}

func TestClear(t *testing.T) {
	app := NewApplication()
	id := create(t, app)
	mustApply(t, app, Entry{Method: MethodAppend, InstanceId: id, Word: "hello"})

	res := mustApply(t, app, Entry{Method: MethodClear, InstanceId: id})
	if !res.Result {
		t.Fatalf("expected clear to succeed")
	}
	res = mustApply(t, app, Entry{Method: MethodGet, InstanceId: id})
	if !res.Result || res.Value != "" {
		t.Fatalf("expected empty buffer after clear, got %+v", res)
	}
}

func TestUnknownInstanceFails(t *testing.T) {
	app := NewApplication()
	res := mustApply(t, app, Entry{Method: MethodAppend, InstanceId: "nonexistent", Word: "x"})
	if res.Result {
		t.Fatalf("expected append against unknown instance to fail")
	}
}

func TestUnknownMethodFails(t *testing.T) {
	app := NewApplication()
	id := create(t, app)
	res := mustApply(t, app, Entry{Method: "bogus", InstanceId: id})
	if res.Result || res.Err == "" {
		t.Fatalf("expected unknown method to fail with an error message, got %+v", res)
	}
}

func TestSnapshotReflectsAllInstances(t *testing.T) {
	app := NewApplication()
	id := create(t, app)
	mustApply(t, app, Entry{Method: MethodAppend, InstanceId: id, Word: "hi"})

	snap := app.Snapshot()
	if snap[id] != "hi" {
		t.Fatalf("expected snapshot[%s] == %q, got %q", id, "hi", snap[id])
	}
}

func create(t *testing.T, app *Application) string {
	t.Helper()
	res := mustApply(t, app, Entry{Method: MethodCreate})
	if !res.Result {
		t.Fatalf("create failed: %+v", res)
	}
	return res.Value
}

func mustApply(t *testing.T, app *Application, e Entry) Result {
	t.Helper()
	out, err := app.Apply(e)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	res, ok := out.(Result)
	if !ok {
		t.Fatalf("Apply returned unexpected type %T", out)
	}
	return res
}
