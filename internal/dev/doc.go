// Package dev implements the development server loop: a polling file
// watcher, a websocket livereload channel, and a rebuilder that swaps the
// route tree in place. A rebuild that fails keeps the previous tree
// serving; the error is logged and pushed to connected browsers.
package dev
