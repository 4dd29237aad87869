// Package terminal renders pairing sessions on a text terminal.
//
// The Presenter draws QR codes with half-block characters and prints one
// status line per session transition. It can also mirror the current QR
// code to a PNG file for operators on a remote shell.
package terminal
