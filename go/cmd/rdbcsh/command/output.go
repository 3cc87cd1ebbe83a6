// Copyright 2026 Supabase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package command

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/multigres/rdbc/go/rdbc/result"
)

type printer interface {
	print(ctx context.Context, r *result.Result) error
	flush() error
}

func newPrinter(w io.Writer, format string) (printer, error) {
	switch format {
	case "table":
		return &tablePrinter{w: w}, nil
	case "yaml":
		return &yamlPrinter{w: w}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (expected table or yaml)", format)
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

// tablePrinter renders row sets as ASCII tables and other results as one
// status line.
type tablePrinter struct {
	w io.Writer
}

func (p *tablePrinter) print(ctx context.Context, r *result.Result) error {
	switch r.Kind() {
	case result.KindScheme:
		_, err := fmt.Fprintln(p.w, "OK")
		return err
	case result.KindUpdateCount:
		_, err := fmt.Fprintf(p.w, "OK, %d row(s) affected\n", r.RowsUpdated())
		return err
	}

	table := tablewriter.NewWriter(p.w)
	table.SetAutoFormatHeaders(false)
	count := 0
	err := r.Rows(ctx, func(row result.Row) error {
		if count == 0 {
			header := make([]string, 0, row.Len())
			for _, c := range row.Columns() {
				header = append(header, c.Name)
			}
			table.SetHeader(header)
		}
		line := make([]string, row.Len())
		for i := range line {
			line[i] = formatValue(row.At(i))
		}
		table.Append(line)
		count++
		return nil
	})
	if err != nil {
		return err
	}
	if count > 0 {
		table.Render()
	}
	_, err = fmt.Fprintf(p.w, "(%d row(s))\n", count)
	return err
}

func (p *tablePrinter) flush() error { return nil }

// yamlResult is the YAML form of one result.
type yamlResult struct {
	Kind        string           `yaml:"kind"`
	RowsUpdated int64            `yaml:"rows_updated"`
	Rows        []map[string]any `yaml:"rows,omitempty"`
}

// yamlPrinter buffers every result and writes one YAML sequence on flush.
type yamlPrinter struct {
	w       io.Writer
	results []yamlResult
}

func (p *yamlPrinter) print(ctx context.Context, r *result.Result) error {
	out := yamlResult{Kind: r.Kind().String(), RowsUpdated: r.RowsUpdated()}
	err := r.Rows(ctx, func(row result.Row) error {
		m := make(map[string]any, row.Len())
		for i, c := range row.Columns() {
			if v := row.At(i); v != nil {
				m[c.Name] = formatValue(v)
			} else {
				m[c.Name] = nil
			}
		}
		out.Rows = append(out.Rows, m)
		return nil
	})
	if err != nil {
		return err
	}
	p.results = append(p.results, out)
	return nil
}

func (p *yamlPrinter) flush() error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(p.results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return enc.Close()
}
