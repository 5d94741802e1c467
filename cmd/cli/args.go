package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const commandArgsFile = "Command args.txt"

// saveCommandArgs writes the invoking command line, a timestamp and one
// "name: value" line per option to path.
func saveCommandArgs(fs afero.Fs, path string, argv []string, opts interface{}) error {
	raw, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to encode command args: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("failed to encode command args: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n", commandLine(argv))
	fmt.Fprintf(&buf, "saved: %s\n", time.Now().Format(time.RFC3339))
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s: %v\n", k, fields[k])
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to save command args: %w", err)
	}
	return nil
}

// shellSpecial lists characters that make an argument need quoting when the
// command line is pasted back into a shell.
const shellSpecial = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// quoteArg single-quotes s when it contains shell metacharacters
func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, shellSpecial) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// commandLine renders argv so it can be re-run from a shell
func commandLine(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = quoteArg(a)
	}
	return strings.Join(quoted, " ")
}
