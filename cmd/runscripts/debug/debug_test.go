// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package debug

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/peterh/liner"
	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"github.com/zclconf/go-cty/cty"
)

// scripted replays lines and then returns end.
type scripted struct {
	lines   []string
	end     error
	history []string
	closed  bool
}

func (s *scripted) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", s.end
	}

	l := s.lines[0]
	s.lines = s.lines[1:]

	return l, nil
}

func (s *scripted) AppendHistory(item string) { s.history = append(s.history, item) }

func (s *scripted) Close() error {
	s.closed = true
	return nil
}

func testEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"cpu_count": cty.NumberIntVal(8),
		},
	}
}

func TestLoop(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		end     error
		want    []string
		history []string
		wantErr bool
	}{
		{
			name:    "evaluates until quit",
			lines:   []string{"cpu_count * 2", "", "\"a\"", "quit", "1"},
			want:    []string{"16\n", "\"a\"\n"},
			history: []string{"cpu_count * 2", "\"a\""},
		},
		{
			name:    "reports errors and continues",
			lines:   []string{"nope", "1 +", "1 + *", "exit"},
			want:    []string{"Unknown variable", "Missing expression", "Invalid expression"},
			history: []string{"nope", "1 +", "1 + *"},
		},
		{
			name: "ctrl+c aborts",
			end:  liner.ErrPromptAborted,
			want: []string{"Aborted\n"},
		},
		{
			name: "eof ends quietly",
			end:  io.EOF,
		},
		{
			name:    "read error",
			end:     errors.New("tty gone"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			p := &scripted{lines: tt.lines, end: tt.end}

			err := Loop(&out, p, testEvalContext())
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)

			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}

			assert.Equal(t, tt.history, p.history)
		})
	}
}

func TestDebugCmd(t *testing.T) {
	p := &scripted{lines: []string{"upper(\"x\")"}, end: io.EOF}

	stubs := gostub.Stub(&NewPrompter, func() Prompter { return p })
	defer stubs.Reset()

	var out bytes.Buffer

	root := &cli.Command{
		Name:     "runscripts",
		Writer:   &out,
		Commands: []*cli.Command{NewCommand()},
	}

	require.NoError(t, root.Run(context.Background(), []string{"runscripts", "debug"}))
	assert.Contains(t, out.String(), "\"X\"")
	assert.True(t, p.closed)
}
