// Package planner builds a single day's timeline from commitments, tasks,
// routines and meals. It places meals inside their windows, fills the gaps
// between fixed blocks with flexible work separated by transition buffers,
// and shrinks a plan to its essentials when the user falls behind.
// Every function is a pure transform of its inputs and an injected "now".
package planner
