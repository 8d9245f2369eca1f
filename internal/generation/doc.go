// Package generation holds the configuration surface of the remote content
// generation API: its base URL and a bearer-token provider. The deck engine
// never calls the API itself; Client only prepares authenticated requests
// for the components that do.
package generation
