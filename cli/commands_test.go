package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/kong"
)

const gameDecls = `weapon pistol { damage = 10; ammo = 12 }
weapon magnum { inherit = pistol; damage = 40 }
monster imp { health = 60 }
`

const uiDecls = `ui { title = Main; button(label="Ok", x=10); }`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// run parses args as the declkit command line and runs the selected command.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var app struct {
		Commands
	}
	var stdout, stderr bytes.Buffer
	parser, err := kong.New(&app,
		kong.Name("declkit"),
		kong.Writers(&stdout, &stderr),
		kong.Bind(&app.Globals),
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	assert.NoError(t, err)

	ctx, err := parser.Parse(args)
	assert.NoError(t, err)

	err = ctx.Run()
	return stdout.String(), stderr.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var cmdErr *CommandError
	assert.True(t, errors.As(err, &cmdErr), "expected *CommandError, got %v", err)
	return cmdErr.ExitCode()
}

func TestCheckCmd(t *testing.T) {
	t.Run("Passes", func(t *testing.T) {
		stdout, stderr, err := run(t, "check", writeFile(t, "game.decl", gameDecls))
		assert.NoError(t, err)
		assert.Contains(t, stdout, "Check passed: 3 declarations")
		assert.Equal(t, "", stderr)
	})

	t.Run("SyntaxError", func(t *testing.T) {
		path := writeFile(t, "bad.decl", "weapon pistol {\n  damage = 10\n  ammo 12\n}\n")
		_, stderr, err := run(t, "check", path)
		assert.Equal(t, 1, exitCode(t, err))
		assert.Contains(t, stderr, `bad.decl:3:8: syntax error: expected "=", found "12"`)
		assert.Contains(t, stderr, "  ammo 12\n          ^")
		assert.Contains(t, stderr, "load failed")
	})

	t.Run("WarningsPassUnlessStrict", func(t *testing.T) {
		path := writeFile(t, "game.decl", gameDecls)

		stdout, stderr, err := run(t, "check", "--type", "weapon", path)
		assert.NoError(t, err)
		assert.Contains(t, stdout, "Check passed: 2 declarations")
		assert.Contains(t, stderr, `warning: unknown declaration type "monster", skipping "imp"`)

		_, stderr, err = run(t, "check", "--type", "weapon", "--strict", path)
		assert.Equal(t, 1, exitCode(t, err))
		assert.Contains(t, stderr, "1 problem found")
	})

	t.Run("InheritanceError", func(t *testing.T) {
		path := writeFile(t, "game.decl", "weapon magnum { inherit = rifle }")
		_, stderr, err := run(t, "check", "--strict", path)
		assert.Equal(t, 1, exitCode(t, err))
		assert.Contains(t, stderr, `weapon: inheritance error: declaration "magnum" inherits unknown declaration "rifle"`)
	})

	t.Run("NestedDeclarations", func(t *testing.T) {
		stdout, _, err := run(t, "check", "--xdecl", writeFile(t, "ui.xdecl", uiDecls))
		assert.NoError(t, err)
		assert.Contains(t, stdout, "Check passed: 2 nodes")
	})

	t.Run("Telemetry", func(t *testing.T) {
		_, stderr, err := run(t, "--telemetry", "check", writeFile(t, "game.decl", gameDecls))
		assert.NoError(t, err)
		assert.Contains(t, stderr, "check game.decl")
		assert.Contains(t, stderr, "decl.LoadFile")
		assert.Contains(t, stderr, "(3 decls)")
	})
}

func TestBinCmd(t *testing.T) {
	oldAsk := askYesNo
	defer func() { askYesNo = oldAsk }()

	var asked []string
	askYesNo = func(question string) (bool, error) {
		asked = append(asked, question)
		return false, nil
	}

	path := writeFile(t, "game.decl", gameDecls)

	stdout, _, err := run(t, "bin", path)
	assert.NoError(t, err)
	assert.Contains(t, stdout, "Wrote")
	assert.Contains(t, stdout, "(3 declarations)")
	cache, err := os.ReadFile(path + ".bin")
	assert.NoError(t, err)
	assert.True(t, bytes.HasPrefix(cache, []byte("BinDecl")))

	// Edit the text but leave the cache newer.
	assert.NoError(t, os.WriteFile(path, []byte(gameDecls+"monster demon { health = 300 }\n"), 0o600))
	old := time.Now().Add(-time.Hour)
	assert.NoError(t, os.Chtimes(path, old, old))

	t.Run("KeepsNewerCache", func(t *testing.T) {
		stdout, _, err := run(t, "bin", path)
		assert.NoError(t, err)
		assert.Contains(t, stdout, "Kept")
		assert.Equal(t, 1, len(asked))

		kept, err := os.ReadFile(path + ".bin")
		assert.NoError(t, err)
		assert.Equal(t, cache, kept)
	})

	t.Run("Force", func(t *testing.T) {
		stdout, _, err := run(t, "bin", "--force", "--compress", path)
		assert.NoError(t, err)
		assert.Contains(t, stdout, "(4 declarations)")
		assert.Equal(t, 1, len(asked))

		stdout, _, err = run(t, "check", path)
		assert.NoError(t, err)
		assert.Contains(t, stdout, "Check passed: 4 declarations")
	})

	t.Run("NestedDeclarations", func(t *testing.T) {
		ui := writeFile(t, "ui.xdecl", uiDecls)
		_, _, err := run(t, "bin", "--xdecl", ui)
		assert.NoError(t, err)

		cache, err := os.ReadFile(ui + ".bin")
		assert.NoError(t, err)
		assert.True(t, bytes.HasPrefix(cache, []byte("BinXDecl")))
	})
}

func TestFormatCmd(t *testing.T) {
	t.Run("Flat", func(t *testing.T) {
		stdout, _, err := run(t, "format", writeFile(t, "game.decl", gameDecls))
		assert.NoError(t, err)
		expected := `weapon pistol {
  damage = 10
  ammo   = 12
}

weapon magnum {
  inherit = pistol
  damage  = 40
}

monster imp {
  health = 60
}
`
		assert.Equal(t, expected, stdout)
	})

	t.Run("Options", func(t *testing.T) {
		path := writeFile(t, "game.decl", "weapon pistol { damage = 10; ammo = 12 }")
		stdout, _, err := run(t, "format", "--indent", "4", "--no-align", "--semicolons", path)
		assert.NoError(t, err)
		assert.Equal(t, "weapon pistol {\n    damage = 10;\n    ammo = 12;\n}\n", stdout)
	})

	t.Run("Nested", func(t *testing.T) {
		stdout, _, err := run(t, "format", "--xdecl", writeFile(t, "ui.xdecl", uiDecls))
		assert.NoError(t, err)
		assert.Equal(t, "ui {\n  title = Main;\n  button(label = Ok, x = 10);\n}\n", stdout)
	})

	t.Run("SyntaxError", func(t *testing.T) {
		stdout, _, err := run(t, "format", writeFile(t, "bad.decl", "weapon {"))
		assert.Equal(t, 1, exitCode(t, err))
		assert.Equal(t, "", stdout)
	})
}

func TestDumpCmd(t *testing.T) {
	path := writeFile(t, "game.decl", gameDecls)

	t.Run("Text", func(t *testing.T) {
		stdout, _, err := run(t, "dump", path)
		assert.NoError(t, err)
		assert.Contains(t, stdout, "weapon magnum\n  inherit = pistol\n  damage = 40\n  ammo = 12\n")
	})

	t.Run("Repr", func(t *testing.T) {
		stdout, _, err := run(t, "dump", "--repr", path)
		assert.NoError(t, err)
		assert.Contains(t, stdout, `Name: "magnum"`)
		assert.Contains(t, stdout, `"ammo": "12"`)
	})

	t.Run("Nested", func(t *testing.T) {
		stdout, _, err := run(t, "dump", "--xdecl", writeFile(t, "ui.xdecl", uiDecls))
		assert.NoError(t, err)
		assert.Equal(t, "ui\n  title = Main\n  button\n    label = Ok\n    x = 10\n", stdout)
	})

	t.Run("NestedRepr", func(t *testing.T) {
		stdout, _, err := run(t, "dump", "--xdecl", "--repr", writeFile(t, "ui.xdecl", uiDecls))
		assert.NoError(t, err)
		assert.Contains(t, stdout, `Name: "button"`)
	})
}

func TestLexCmd(t *testing.T) {
	stdout, _, err := run(t, "doctor", "lex", writeFile(t, "a.decl", `weapon "big gun" { x = 1 }`))
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Equal(t, 7, len(lines))
	assert.Equal(t, `WORD       1:1    "weapon"`, lines[0])
	assert.Equal(t, `STRING     1:8    "\"big gun\""`, lines[1])
	assert.Equal(t, `{          1:18    "{"`, lines[2])
}

func TestLexCmdError(t *testing.T) {
	stdout, _, err := run(t, "doctor", "lex", writeFile(t, "a.decl", `weapon "unterminated`))
	assert.Error(t, err)
	assert.Contains(t, stdout, `"weapon"`)
}
