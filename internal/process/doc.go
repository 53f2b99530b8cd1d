// Package process launches and supervises the syncthing executable:
// argument and environment construction, log line capture, exit
// classification, and forced termination of stray instances.
package process
