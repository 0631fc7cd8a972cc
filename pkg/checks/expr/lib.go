package expr

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

// lib exposes the target filesystem to expressions.
type lib struct {
	root   string
	getenv func(string) string
}

func (l *lib) path(p string) string {
	if l.root == "" {
		return p
	}
	return filepath.Join(l.root, filepath.Clean("/"+p))
}

func (l *lib) readFile(p string) ([]byte, error) {
	return os.ReadFile(l.path(p))
}

func (*lib) ProgramOptions() []cel.ProgramOption {
	return nil
}

func (l *lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Strings(),
		ext.Lists(),

		cel.Variable("values", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("rule", cel.StringType),
		cel.Variable("policy", cel.StringType),

		// Example: fileExists("/etc/shadow").
		cel.Function("fileExists",
			cel.Overload("file_exists_string", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					p, ok := path.(types.String)
					if !ok {
						return types.NewErr("fileExists: invalid path")
					}
					_, err := os.Lstat(l.path(string(p)))
					return types.Bool(err == nil)
				}),
			),
		),

		// Example: fileMode("/etc/shadow") == 0o640.
		cel.Function("fileMode",
			cel.Overload("file_mode_string", []*cel.Type{cel.StringType}, cel.IntType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					p, ok := path.(types.String)
					if !ok {
						return types.NewErr("fileMode: invalid path")
					}
					info, err := os.Stat(l.path(string(p)))
					if err != nil {
						return types.NewErr("fileMode: %v", err)
					}
					return types.Int(unixMode(info.Mode()))
				}),
			),
		),

		// Example: fileContains("/etc/login.defs", "ENCRYPT_METHOD SHA512").
		cel.Function("fileContains",
			cel.Overload("file_contains_string_string", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(path, sub ref.Val) ref.Val {
					p, ok := path.(types.String)
					if !ok {
						return types.NewErr("fileContains: invalid path")
					}
					s, ok := sub.(types.String)
					if !ok {
						return types.NewErr("fileContains: invalid substring")
					}
					data, err := l.readFile(string(p))
					if errors.Is(err, fs.ErrNotExist) {
						return types.False
					}
					if err != nil {
						return types.NewErr("fileContains: %v", err)
					}
					return types.Bool(strings.Contains(string(data), string(s)))
				}),
			),
		),

		// Example: fileMatches("/etc/ssh/sshd_config", "(?m)^Protocol\\s+2$").
		cel.Function("fileMatches",
			cel.Overload("file_matches_string_string", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(path, pattern ref.Val) ref.Val {
					p, ok := path.(types.String)
					if !ok {
						return types.NewErr("fileMatches: invalid path")
					}
					pat, ok := pattern.(types.String)
					if !ok {
						return types.NewErr("fileMatches: invalid pattern")
					}
					re, err := regexp.Compile(string(pat))
					if err != nil {
						return types.NewErr("fileMatches: %v", err)
					}
					data, err := l.readFile(string(p))
					if errors.Is(err, fs.ErrNotExist) {
						return types.False
					}
					if err != nil {
						return types.NewErr("fileMatches: %v", err)
					}
					return types.Bool(re.Match(data))
				}),
			),
		),

		// Example: fileLines("/etc/securetty").all(l, !l.startsWith("tty")).
		cel.Function("fileLines",
			cel.Overload("file_lines_string", []*cel.Type{cel.StringType}, cel.ListType(cel.StringType),
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					p, ok := path.(types.String)
					if !ok {
						return types.NewErr("fileLines: invalid path")
					}
					data, err := l.readFile(string(p))
					if err != nil {
						return types.NewErr("fileLines: %v", err)
					}
					lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
					return types.NewStringList(types.DefaultTypeAdapter, lines)
				}),
			),
		),

		// Example: env("container") == "".
		cel.Function("env",
			cel.Overload("env_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(name ref.Val) ref.Val {
					n, ok := name.(types.String)
					if !ok {
						return types.NewErr("env: invalid name")
					}
					return types.String(l.getenv(string(n)))
				}),
			),
		),
	}
}

// unixMode returns the permission bits of m in their octal layout, with
// setuid, setgid and sticky at 0o4000, 0o2000 and 0o1000.
func unixMode(m fs.FileMode) int64 {
	mode := int64(m.Perm())
	if m&fs.ModeSetuid != 0 {
		mode |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		mode |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		mode |= 0o1000
	}
	return mode
}
