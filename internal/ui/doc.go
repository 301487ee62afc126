// Package ui implements an interactive terminal interface for a migration run using bubbletea's Elm architecture.
//
// The TUI walks through three views:
//  1. [ConfirmView] : Review direction, delete policy and dry run, then start
//  2. [MigrateView] : A progress bar, spinner and the latest status line while entries are moved
//  3. [ResultView] : Totals and a browsable list of every outcome
//
// The (view) [Model] implements the standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the [tasks.MigrationEngine]; the model re-arms a read command after each one.
//
// Keyboard navigation uses vim-style bindings (j/k, y/n, s, d, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
