// Package ui renders nekowatch's terminal output: host status tables, load
// gauges, history sparklines, a spinner for remote operations and
// confirmation prompts.
//
// Colors are ANSI codes so output degrades cleanly on limited terminals.
// DisableColors switches every style to plain text for --no-color and for
// output that is not a terminal.
package ui
