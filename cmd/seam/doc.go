// Command seam is the CLI for the seam daemon: lifecycle control of
// the supervised syncthing instance, folder and device views, and the
// event history.
package main
