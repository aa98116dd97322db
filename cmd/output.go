// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"notebook-scheduler/pkg/gcp"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

var (
	stdout io.Writer = os.Stdout
	exit             = os.Exit
)

func validateFormat(f string) error {
	switch f {
	case "", formatJSON, formatYAML, formatTable:
		return nil
	}
	return fmt.Errorf("unknown output format %q, expected json, yaml or table", f)
}

// resolveFormat picks table for terminals and json otherwise when no format
// was requested.
func resolveFormat(f string, w io.Writer) string {
	if f != "" {
		return f
	}
	if file, ok := w.(*os.File); ok && (isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())) {
		return formatTable
	}
	return formatJSON
}

func printResult(v any) error {
	return render(stdout, resolveFormat(outputFormat, stdout), v)
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatTable:
		return renderTable(w, v)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// renderTable flattens v through its JSON form. Lists of objects become one
// row per element, objects become key/value rows and anything else is printed
// as is.
func renderTable(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	hasHeader := false
	switch val := generic.(type) {
	case []any:
		rows := make([]map[string]any, 0, len(val))
		keys := map[string]bool{}
		for _, item := range val {
			m, ok := item.(map[string]any)
			if !ok {
				m = map[string]any{"value": item}
			}
			for k := range m {
				keys[k] = true
			}
			rows = append(rows, m)
		}
		cols := maps.Keys(keys)
		slices.Sort(cols)
		if len(cols) == 0 {
			fmt.Fprintln(tw, "(none)")
			break
		}
		upper := make([]string, len(cols))
		for i, c := range cols {
			upper[i] = strings.ToUpper(c)
		}
		fmt.Fprintln(tw, strings.Join(upper, "\t"))
		hasHeader = true
		for _, row := range rows {
			cells := make([]string, len(cols))
			for i, c := range cols {
				cells[i] = cell(row[c])
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	case map[string]any:
		keys := maps.Keys(val)
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%s\n", k, cell(val[k]))
		}
	default:
		fmt.Fprintln(tw, cell(val))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	// The header is colored after alignment so escape codes do not count
	// towards column widths.
	if hasHeader {
		line, err := buf.ReadString('\n')
		if err != nil {
			return err
		}
		if _, err := color.New(color.Bold).Fprint(w, line); err != nil {
			return err
		}
	}
	_, err = buf.WriteTo(w)
	return err
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64, bool:
		return fmt.Sprint(val)
	default:
		raw, _ := json.Marshal(val)
		return string(raw)
	}
}

// fail prints err the way the plugin reports errors and exits 1.
func fail(err error) {
	body := map[string]any{"error": err.Error()}
	if errors.Is(err, gcp.ErrAuthentication) {
		body["status"] = gcp.AuthStatus
	}
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(body)
	exit(1)
}
