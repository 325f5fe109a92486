// Package ui holds the terminal styles used by the ytmirror CLI.
//
// A [Palette] maps queue statuses, match statuses and drain stages to [lipgloss] styles so that
// every command colors the same state the same way.
package ui
