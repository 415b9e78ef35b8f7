package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	nimble "github.com/deliteai/nimblecore"
)

var (
	version         = "dev"
	compilationDate = "unknown"
)

func main() {
	app := &cli.App{
		Name:      "nimblerun",
		Usage:     "run an on-device script task against a pre-parsed AST",
		Version:   version,
		ArgsUsage: "AST_FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config YAML file, exposed to the task via get_config()"},
			&cli.StringFlag{Name: "call", Usage: "function to invoke; omit to start an interactive shell"},
			&cli.StringFlag{Name: "args", Usage: "JSON object of inputs for --call"},
		},
		Action: mainAction,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func mainAction(ctx *cli.Context) error {
	if ctx.Args().Len() == 0 {
		return cli.Exit("missing AST_FILE argument", 1)
	}
	astPath := ctx.Args().First()

	task, err := loadTask(astPath, ctx.String("config"))
	if err != nil {
		return err
	}

	if call := ctx.String("call"); call != "" {
		inputs, err := parseArgsJSON(ctx.String("args"))
		if err != nil {
			return err
		}
		result, err := task.Operate(call, inputs)
		if err != nil {
			return fmt.Errorf("operate %s: %w", call, err)
		}
		fmt.Println(result.String())
		return nil
	}

	return runShell(task, os.Stdin, os.Stdout)
}

// loadTask decodes the AST document at astPath and, if configPath is set,
// parses it as the task's config YAML before returning.
func loadTask(astPath, configPath string) (*nimble.Task, error) {
	astData, err := os.ReadFile(astPath)
	if err != nil {
		return nil, fmt.Errorf("reading AST file: %w", err)
	}
	task, err := nimble.NewTask(astData)
	if err != nil {
		return nil, fmt.Errorf("loading task: %w", err)
	}
	if configPath != "" {
		cfgData, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		var probe any
		if err := yaml.Unmarshal(cfgData, &probe); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if err := task.SetConfigYAML(cfgData); err != nil {
			return nil, fmt.Errorf("setting config: %w", err)
		}
	}
	return task, nil
}

func parseArgsJSON(raw string) (map[string]nimble.Value, error) {
	inputs := map[string]nimble.Value{}
	if raw == "" {
		return inputs, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parsing --args: %w", err)
	}
	for k, v := range decoded {
		inputs[k] = jsonToValue(v)
	}
	return inputs, nil
}

// jsonToValue converts a json.Unmarshal'd any into a Value, the same
// recursive shape as convertYAMLValue in config.go but over encoding/json's
// decoded types (float64 for all JSON numbers, no map[any]any case).
func jsonToValue(raw any) nimble.Value {
	switch v := raw.(type) {
	case nil:
		return nimble.None
	case bool:
		return nimble.NewBool(v)
	case float64:
		if v == float64(int64(v)) {
			return nimble.NewInt64(int64(v))
		}
		return nimble.NewDouble(v)
	case string:
		return nimble.NewUnicodeString(v)
	case []any:
		elems := make([]nimble.Value, len(v))
		for i, e := range v {
			elems[i] = jsonToValue(e)
		}
		return nimble.NewList(elems)
	case map[string]any:
		m := nimble.NewMap()
		for k, e := range v {
			m.Set(k, jsonToValue(e))
		}
		return m
	}
	return nimble.None
}
