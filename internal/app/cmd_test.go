package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCommand_Help(t *testing.T) {
	cmd := NewRootCommand(&bytes.Buffer{})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute(--help) error = %v", err)
	}

	help := out.String()
	for _, name := range []string{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck} {
		if !strings.Contains(help, name) {
			t.Errorf("help output should list %q subcommand:\n%s", name, help)
		}
	}
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand(&bytes.Buffer{})

	want := map[string]bool{
		CommandServe:       false,
		CommandWorker:      false,
		CommandMigrate:     false,
		CommandHealthcheck: false,
	}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q is not registered", name)
		}
	}
}

func TestNewRootCommand_RootServesByDefault(t *testing.T) {
	cmd := NewRootCommand(&bytes.Buffer{})
	if cmd.RunE == nil {
		t.Fatal("root command should run serve when no subcommand is given")
	}
}

func TestNewRootCommand_UnknownSubcommand_ReturnsError(t *testing.T) {
	cmd := NewRootCommand(&bytes.Buffer{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"unknown"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("Execute(unknown) should return an error")
	}
}

func TestHealthcheckCommand_PortDefaultsToServerPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")

	cmd := newHealthcheckCommand()
	flag := cmd.Flags().Lookup("port")
	if flag == nil {
		t.Fatal("healthcheck should have a --port flag")
	}
	if flag.DefValue != "9090" {
		t.Errorf("--port default = %q, want %q", flag.DefValue, "9090")
	}
}

func TestHealthcheckCommand_PortFallsBackTo8080(t *testing.T) {
	t.Setenv("SERVER_PORT", "")

	cmd := newHealthcheckCommand()
	if got := cmd.Flags().Lookup("port").DefValue; got != "8080" {
		t.Errorf("--port default = %q, want %q", got, "8080")
	}
}
