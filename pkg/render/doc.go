// Package render projects a conversation log into a structured render tree and
// from there into terminal output.
//
// Build is a pure function of the log: the same entries always produce the same
// Tree. Projections (Terminal) only read the tree, so the "what is shown" logic can
// be tested without any terminal attached. Follow implements the auto-scroll rule
// shared by every scrollable surface.
package render
