package cli_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"smartlife/client/internal/apitest"
	"smartlife/client/internal/cli"
	"smartlife/client/internal/model"
)

type env struct {
	api *apitest.Server
	db  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SMARTLIFE_CONFIG", filepath.Join(home, "missing.yaml"))
	return &env{api: apitest.New(t), db: filepath.Join(t.TempDir(), "storage.db")}
}

func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--api-url", e.api.URL, "--db", e.db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("smartlife %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestLoginAndManageTasks(t *testing.T) {
	e := newEnv(t)
	e.api.AddUser(model.User{Username: "ana", FirstName: "Ana"}, "secret")

	if out := e.mustRun(t, "login", "-u", "ana", "-p", "secret"); !strings.Contains(out, "Signed in as ana") {
		t.Fatalf("unexpected login output %q", out)
	}
	if out := e.mustRun(t, "whoami"); !strings.Contains(out, "ana (Ana)") {
		t.Fatalf("unexpected whoami output %q", out)
	}

	e.mustRun(t, "tasks", "add", "Buy milk", "--priority", "Low")
	tasks := e.api.Tasks("ana")
	if len(tasks) != 1 {
		t.Fatalf("expected one task on the server, got %+v", tasks)
	}
	id := tasks[0].ID

	if out := e.mustRun(t, "tasks", "list"); !strings.Contains(out, "Buy milk") || !strings.Contains(out, "Low") {
		t.Fatalf("unexpected list output %q", out)
	}
	if out := e.mustRun(t, "tasks", "toggle", id); !strings.Contains(out, "[Completed]") {
		t.Fatalf("unexpected toggle output %q", out)
	}
	if out := e.mustRun(t, "tasks", "move", id, "In Progress"); !strings.Contains(out, "[In Progress]") {
		t.Fatalf("unexpected move output %q", out)
	}

	if _, err := e.run(t, "", "tasks", "add", "x", "--priority", "Urgent"); err == nil {
		t.Fatal("expected invalid priority to fail")
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	e := newEnv(t)
	e.api.AddUser(model.User{Username: "ana"}, "secret")
	e.mustRun(t, "login", "-u", "ana", "-p", "secret")
	e.mustRun(t, "tasks", "add", "Keep me")
	id := e.api.Tasks("ana")[0].ID

	out, err := e.run(t, "n\n", "tasks", "delete", id)
	if err != nil || !strings.Contains(out, "Cancelled") {
		t.Fatalf("expected cancellation, got %q err %v", out, err)
	}
	if len(e.api.Tasks("ana")) != 1 {
		t.Fatal("expected task kept")
	}

	out, err = e.run(t, "y\n", "tasks", "delete", id)
	if err != nil || !strings.Contains(out, "Deleted") {
		t.Fatalf("expected deletion, got %q err %v", out, err)
	}
	if len(e.api.Tasks("ana")) != 0 {
		t.Fatal("expected task deleted on the server")
	}
}

func TestWorksOffline(t *testing.T) {
	e := newEnv(t)
	e.api.GoOffline()

	if out := e.mustRun(t, "register", "-u", "bob", "-p", "pw"); !strings.Contains(out, "on this device") {
		t.Fatalf("unexpected register output %q", out)
	}
	if out := e.mustRun(t, "login", "-u", "bob", "-p", "pw"); !strings.Contains(out, "(offline)") {
		t.Fatalf("unexpected login output %q", out)
	}

	e.mustRun(t, "tasks", "add", "Offline task")
	out := e.mustRun(t, "tasks", "list")
	if !strings.Contains(out, "Offline task") || !strings.Contains(out, "Offline:") {
		t.Fatalf("unexpected list output %q", out)
	}
}

func TestPomodoroCommands(t *testing.T) {
	e := newEnv(t)

	if out := e.mustRun(t, "pomodoro", "status"); !strings.Contains(out, "Focus Time  25:00  idle") {
		t.Fatalf("unexpected status %q", out)
	}
	if out := e.mustRun(t, "pomodoro", "start"); !strings.Contains(out, "running") {
		t.Fatalf("unexpected start output %q", out)
	}
	if out := e.mustRun(t, "pomodoro", "pause"); !strings.Contains(out, "paused") {
		t.Fatalf("unexpected pause output %q", out)
	}
	if out := e.mustRun(t, "pomodoro", "mode", "long"); !strings.Contains(out, "Long Break  15:00  idle") {
		t.Fatalf("unexpected mode output %q", out)
	}
	if _, err := e.run(t, "", "pomodoro", "mode", "nap"); err == nil {
		t.Fatal("expected unknown mode to fail")
	}
	if out := e.mustRun(t, "pomodoro", "clear"); !strings.Contains(out, "Focus Time  25:00  idle") {
		t.Fatalf("unexpected clear output %q", out)
	}
}

func TestNotesAndPreferences(t *testing.T) {
	e := newEnv(t)

	if out := e.mustRun(t, "notes", "list"); !strings.Contains(out, "Consp 1") {
		t.Fatalf("expected seeded notes, got %q", out)
	}
	if out := e.mustRun(t, "notes", "save", "--title", "consp 1", "--content", "hello"); !strings.Contains(out, `"consp 1 (2)"`) {
		t.Fatalf("expected unique title, got %q", out)
	}
	if out := e.mustRun(t, "notes", "folder-add", "Reading"); !strings.Contains(out, `"Reading"`) {
		t.Fatalf("unexpected folder output %q", out)
	}
	if out := e.mustRun(t, "notes", "zoom", "9"); strings.TrimSpace(out) != "1.5" {
		t.Fatalf("expected clamped zoom, got %q", out)
	}

	if out := e.mustRun(t, "prefs", "theme"); strings.TrimSpace(out) != "light" {
		t.Fatalf("expected light default, got %q", out)
	}
	if out := e.mustRun(t, "prefs", "theme", "dark"); strings.TrimSpace(out) != "dark" {
		t.Fatalf("expected dark, got %q", out)
	}
	if out := e.mustRun(t, "prefs", "newyear", "off"); strings.TrimSpace(out) != "off" {
		t.Fatalf("expected off, got %q", out)
	}
	if _, err := e.run(t, "", "prefs", "theme", "blue"); err == nil {
		t.Fatal("expected invalid theme to fail")
	}
}
