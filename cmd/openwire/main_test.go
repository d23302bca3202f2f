package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm/openwire/internal/config"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "--version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "openwire version "+version+"\n" {
		t.Errorf("version = %q", out)
	}
}

func TestCompile(t *testing.T) {
	tmpl := writeFile(t, "counter.html", `<div openwire="counter"><button @click="increment">{{ count }}</button></div>`)
	data := writeFile(t, "data.yaml", "count: 7\n")

	out, err := run(t, "", "compile", tmpl, "--data", data, "--component", "counter", "--id", "ow_cli", "--stateful")
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`data-ow-component="counter"`,
		`data-ow-id="ow_cli"`,
		`"initialState":{"count":7}`,
		`data-ow:click="increment"`,
		`>7</button>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCompileStdin(t *testing.T) {
	out, err := run(t, `<p>{{ name }}</p>`, "compile", "-")
	if err != nil {
		t.Fatal(err)
	}
	if out != "<p></p>\n" {
		t.Errorf("output = %q, want unknown values rendered empty", out)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no template", []string{"compile"}, "accepts 1 arg"},
		{"missing template", []string{"compile", filepath.Join(t.TempDir(), "nope.html")}, "no such file"},
		{"bad data", []string{"compile", "-", "--data", writeFile(t, "bad.yaml", "count: [")}, "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "<p></p>", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestComponents(t *testing.T) {
	out, err := run(t, "", "components")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"counter\n", "clock\n", "todo\n", "catalog/product.price\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("components missing %q:\n%s", want, out)
		}
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		cfg     config.Log
		wantErr bool
	}{
		{config.Log{Level: "info", Format: "text"}, false},
		{config.Log{Level: "debug", Format: "json"}, false},
		{config.Log{Level: "loud", Format: "text"}, true},
		{config.Log{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger, err := newLogger(&buf, tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("newLogger(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		logger.Info("hello")
		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("newLogger(%+v) wrote %q", tt.cfg, buf.String())
		}
	}
}

func TestServeBadConfig(t *testing.T) {
	path := writeFile(t, "openwire.yaml", "state:\n  backend: etcd\n")
	if _, err := run(t, "", "serve", "--config", path); err == nil {
		t.Error("serve accepted an unknown backend")
	}
}
