package ui

import "embed"

// Static embeds the frontend pages and assets. The pages are plain HTML/JS
// that call the JSON API; they keep the session token and a denormalized
// user summary in localStorage purely for client-side routing. Nothing in
// them is a security boundary.
//
//go:embed all:static
var Static embed.FS
