// SPDX-License-Identifier: AGPL-3.0-or-later
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/flowd-org/ask/internal/engine"
	"github.com/flowd-org/ask/internal/events"
	"github.com/flowd-org/ask/internal/paths"
	"github.com/flowd-org/ask/internal/types"
)

// DefaultInterpreter runs scripts when the handler params name none.
const DefaultInterpreter = "/bin/sh"

// Script runs a file next to the schema that declared it. Handler params:
//
//	script:      path relative to the schema folder (required)
//	interpreter: command line used to run it (default /bin/sh)
//	env:         extra environment variables
//	inheritEnv:  pass the caller's environment through
type Script struct {
	Stdout io.Writer
	Stderr io.Writer
}

// ExitError reports a script that ran but exited non-zero.
type ExitError struct {
	Script   string
	ExitCode int
	Err      error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("script %s exited with code %d", e.Script, e.ExitCode)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Run executes the script. The returned value is the exit code.
func (s *Script) Run(ctx context.Context, opts types.Options, env types.Env) (interface{}, error) {
	params, _ := env[engine.EnvHandlerParams].(map[string]interface{})
	script := strings.TrimSpace(types.ValueString(params["script"]))
	if script == "" {
		return nil, errors.New("script.run: params.script is required")
	}
	folder, _ := env[engine.EnvFolder].(string)
	scriptPath := script
	if !filepath.IsAbs(scriptPath) {
		scriptPath = filepath.Join(folder, filepath.FromSlash(script))
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("script.run: %w", err)
	}

	interpreter := strings.TrimSpace(types.ValueString(params["interpreter"]))
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	interpCmd, interpArgs, err := splitInterpreter(interpreter)
	if err != nil {
		return nil, err
	}

	bind, _ := env[engine.EnvBinding].(*engine.Binding)
	if bind == nil {
		return nil, errors.New("script.run: missing argument binding")
	}
	dispatchID, _ := env[engine.EnvDispatchID].(string)
	action, _ := env[engine.EnvAction].(string)
	sink, _ := env[engine.EnvSink].(events.Sink)
	handler := "script.run"

	cmdArgs := append([]string{}, interpArgs...)
	cmdArgs = append(cmdArgs, scriptPath)
	cmd := exec.CommandContext(ctx, interpCmd, cmdArgs...)
	cmd.Dir = filepath.Dir(scriptPath)

	extra := stringMap(params["env"])
	inherit, _ := params["inheritEnv"].(bool)
	cmdEnv := buildScriptEnv(extra, bind, inherit)
	cmdEnv = upsertEnv(cmdEnv, "ASK_DISPATCH_ID", dispatchID)
	cmdEnv = upsertEnv(cmdEnv, "ASK_ACTION", action)
	cmdEnv = upsertEnv(cmdEnv, "DATA_DIR", paths.DataDir())
	cmd.Env = cmdEnv

	stdoutSink := s.Stdout
	if stdoutSink == nil {
		stdoutSink = os.Stdout
	}
	stderrSink := s.Stderr
	if stderrSink == nil {
		stderrSink = os.Stderr
	}
	redactor := events.NewLineRedactor(bind.SecretValues)
	stdoutWriter := events.NewLogWriter(sink, dispatchID, handler, "stdout", stdoutSink, redactor)
	stderrWriter := events.NewLogWriter(sink, dispatchID, handler, "stderr", stderrSink, redactor)
	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	restoreUmask := applySecureUmask()
	err = cmd.Run()
	if restoreUmask != nil {
		restoreUmask()
	}
	stdoutWriter.Flush()
	stderrWriter.Flush()

	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return code, &ExitError{Script: script, ExitCode: code, Err: err}
	}
	return -1, fmt.Errorf("script.run %s: %w", script, err)
}

func splitInterpreter(interpreter string) (string, []string, error) {
	fields := strings.Fields(interpreter)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("invalid interpreter: %q", interpreter)
	}
	return fields[0], fields[1:], nil
}

func upsertEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// buildScriptEnv orders the script environment: params env, PATH, ARG_*
// scalars, ASK_ARGS_JSON, then the caller's environment when inherited.
// Earlier entries win over inherited ones.
func buildScriptEnv(extra map[string]string, bind *engine.Binding, inherit bool) []string {
	type entry struct {
		key string
		val string
	}
	ordered := make([]entry, 0)
	envSet := make(map[string]string)
	set := func(k, v string) {
		if _, exists := envSet[k]; !exists {
			ordered = append(ordered, entry{key: k, val: v})
		}
		envSet[k] = v
	}

	for _, k := range sortedKeys(extra) {
		set(k, extra[k])
	}
	if _, ok := envSet["PATH"]; !ok {
		if path := os.Getenv("PATH"); path != "" {
			set("PATH", path)
		}
	}
	for _, kv := range bind.Env() {
		k, v, _ := strings.Cut(kv, "=")
		set(k, v)
	}
	if bind.ArgsJSON != "" {
		set("ASK_ARGS_JSON", bind.ArgsJSON)
	}
	if inherit {
		for _, kv := range os.Environ() {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			if _, exists := envSet[k]; exists {
				continue
			}
			set(k, v)
		}
	}
	env := make([]string, 0, len(ordered))
	for _, e := range ordered {
		env = append(env, e.key+"="+envSet[e.key])
	}
	return env
}

func stringMap(v interface{}) map[string]string {
	raw, ok := v.(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		out[k] = types.ValueString(val)
	}
	return out
}
